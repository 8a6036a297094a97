// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"applicant-intake/internal/common/validation"
	"applicant-intake/pkg/registry"

	edf "applicant-intake/internal/workers/intake/extract-document-fields"
	iad "applicant-intake/internal/workers/intake/ingest-assistant-data"
	lba "applicant-intake/internal/workers/intake/load-booking-applicants"
	rdu "applicant-intake/internal/workers/intake/record-document-upload"
	sar "applicant-intake/internal/workers/intake/save-applicant-roster"
	ssn "applicant-intake/internal/workers/intake/send-submission-notification"
	vbe "applicant-intake/internal/workers/intake/verify-booking-email"
)

const defaultPath = "configs/activity-registry.json"

// knownTaskTypes are the task types the intake manager can register.
var knownTaskTypes = []string{
	lba.TaskType,
	vbe.TaskType,
	iad.TaskType,
	edf.TaskType,
	rdu.TaskType,
	sar.TaskType,
	ssn.TaskType,
}

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listPath := listCmd.String("path", defaultPath, "Path to registry file")

	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	updatePath := updateCmd.String("path", defaultPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries)")
	value := updateCmd.String("value", "", "New value for the field")

	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", defaultPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		_ = listCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*listPath)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		list(reg)

	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*updatePath, *idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		if err == nil {
			err = validateRegistry(reg)
		}
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	default:
		help()
	}
}

func list(reg *registry.ActivityRegistry) {
	acts := append([]registry.Activity(nil), reg.Activities...)
	sort.Slice(acts, func(i, j int) bool { return acts[i].TaskType < acts[j].TaskType })
	for _, a := range acts {
		fmt.Printf("%-32s %-12s %-8s %s\n", a.TaskType, a.ImplementationStatus, a.Timeout, a.DisplayName)
	}
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	idx := -1
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	a := &reg.Activities[idx]
	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return saveRegistry(reg, path)
}

// validateRegistry checks that every known worker has an entry, every entry
// names a known worker, and every input schema compiles.
func validateRegistry(reg *registry.ActivityRegistry) error {
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	known := map[string]bool{}
	for _, tt := range knownTaskTypes {
		known[tt] = true
		if _, ok := reg.Find(tt); !ok {
			return fmt.Errorf("no activity registered for task type %s", tt)
		}
	}

	for _, a := range reg.Activities {
		if a.ID == "" || a.DisplayName == "" {
			return fmt.Errorf("activity %s missing id or displayName", a.TaskType)
		}
		if !known[a.TaskType] {
			return fmt.Errorf("activity %s has no worker", a.TaskType)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("activity %s: invalid timeout %q", a.TaskType, a.Timeout)
			}
		}
	}

	if _, err := validation.NewValidator(reg); err != nil {
		return err
	}
	return nil
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  list      List registered activities
  update    Update an existing activity's field
  validate  Check the registry against the intake workers
  help      Show this help message

Examples:
  registry-updater list
  registry-updater update -id save-applicant-roster -field timeout -value 120s
  registry-updater validate -path configs/activity-registry.json`)
}
