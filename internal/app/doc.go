// Package app is the composition root behind the espkey command.
//
// New loads the layered configuration and builds the logger. From there an
// App hands out device clients, runs recipes against its Connect method,
// loads logs from a device or a saved file, and opens the viewer.
//
// # Live viewing
//
// View with a refresh interval wraps the device in a Poller. The viewer asks
// the Poller when to fetch next; consecutive failures double the wait up to
// 30 seconds, and one success resets it.
//
//	View()
//	  ├── Client()        resolve device, build espkey.Client
//	  ├── Poller.Poll()   first fetch, decoded and dated
//	  ├── prefs.Load()    theme and filter
//	  └── ui.Run()        blocks; ticks call Poller.Poll()
package app
