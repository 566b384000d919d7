// Package recipe runs declarative sequences of ESPKey operations.
//
// A recipe names devices under "espkeys" and tasks under "tasks". Each task
// targets one device and lists actions executed in order:
//
//	{
//	    "espkeys": {"door": {"base_url": "http://192.168.4.1"}},
//	    "tasks": {
//	        "sweep": {
//	            "target": "door",
//	            "actions": [
//	                {"operation": "get_log", "file_action": "store_with_date"},
//	                {"operation": "delay", "sec": 2},
//	                {"operation": "send_weigand", "data": "0aadc39:26"}
//	            ]
//	        }
//	    }
//	}
//
// Recipes may be JSON with comments (.json, .jsonc) or YAML (.yaml, .yml).
// Task order in the file is the execution order.
//
// Validate reports every structural problem at once before any device is
// contacted. Runner.Run then executes tasks one after another on the calling
// goroutine. When an action fails its task stops, the record so far is
// written with status "failed", and the next task starts.
//
// Each task produces a run record file named
// "<run start>_<target>_<task>.json" in the Store's directory.
package recipe
