package recipe

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError lists every structural problem found in a recipe.
type ValidationError struct {
	Source   string
	Problems []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		fmt.Fprintf(&b, "recipe %q contains the following errors:", e.Source)
	} else {
		b.WriteString("recipe contains the following errors:")
	}
	for _, p := range e.Problems {
		b.WriteString("\n - ")
		b.WriteString(p)
	}
	return b.String()
}

// Validate checks the document without touching the network. It returns a
// *ValidationError naming every problem, or nil.
func Validate(doc *Document) error {
	var problems []string

	if doc.ESPKeys == nil {
		problems = append(problems, `missing top level key "espkeys"`)
	} else if len(doc.ESPKeys) == 0 {
		problems = append(problems, "espkeys: at least one espkey with a base_url is required")
	}
	names := make([]string, 0, len(doc.ESPKeys))
	for name := range doc.ESPKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := doc.ESPKeys[name]
		for _, msg := range t.problems.messages() {
			problems = append(problems, fmt.Sprintf("espkeys.%s: %s", name, msg))
		}
		if strings.TrimSpace(t.BaseURL) == "" && !t.problems.has("base_url") {
			problems = append(problems, fmt.Sprintf("espkeys.%s: a base_url must be specified", name))
		}
		if (t.WebUser == "") != (t.WebPass == "") && !t.problems.has("web_user") && !t.problems.has("web_pass") {
			problems = append(problems, fmt.Sprintf("espkeys.%s: web_user and web_pass must be given together", name))
		}
	}

	if doc.Tasks == nil {
		problems = append(problems, `missing top level key "tasks"`)
	} else if len(doc.Tasks) == 0 {
		problems = append(problems, "tasks: at least one task is required")
	}
	seen := make(map[string]bool, len(doc.Tasks))
	for _, task := range doc.Tasks {
		if seen[task.Name] {
			problems = append(problems, fmt.Sprintf("tasks.%s: duplicate task name", task.Name))
		}
		seen[task.Name] = true
		problems = append(problems, validateTask(task, doc.ESPKeys)...)
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Source: doc.Path, Problems: problems}
}

func validateTask(task Task, targets map[string]Target) []string {
	var problems []string
	for _, msg := range task.problems.messages() {
		problems = append(problems, fmt.Sprintf("tasks.%s: %s", task.Name, msg))
	}
	switch {
	case task.problems.has("target"):
	case task.Target == "":
		problems = append(problems, fmt.Sprintf("tasks.%s: a target is required", task.Name))
	case targets != nil:
		if _, ok := targets[task.Target]; !ok {
			problems = append(problems, fmt.Sprintf("tasks.%s: unknown target %q", task.Name, task.Target))
		}
	}
	if task.Actions == nil && !task.problems.has("actions") {
		problems = append(problems, fmt.Sprintf(`tasks.%s: must contain an "actions[]"`, task.Name))
	}
	for i, spec := range task.Actions {
		_, issues := spec.Compile()
		for _, issue := range issues {
			problems = append(problems, fmt.Sprintf("tasks.%s.actions.%d: %s", task.Name, i, issue))
		}
	}
	return problems
}

// compileTask returns the task's actions. It assumes Validate passed.
func compileTask(task Task) []Action {
	actions := make([]Action, 0, len(task.Actions))
	for _, spec := range task.Actions {
		if action, issues := spec.Compile(); len(issues) == 0 {
			actions = append(actions, action)
		}
	}
	return actions
}
