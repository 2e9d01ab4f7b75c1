// Package describe renders one-line human summaries of activities, used in
// history listings and Graphviz node labels.
package describe

import (
	"fmt"
	"strings"

	"histedit/internal/session"
)

// Activity returns a short description of the activity. A user-supplied
// summary wins; otherwise one is synthesized from the event payload.
func Activity(activity *session.Activity) string {
	if activity.Summary != "" {
		return activity.Summary
	}

	switch activity.Type {
	case session.EventPackage:
		return describePackage(activity.Package)
	case session.EventTransaction:
		return describeTransaction(activity.Transaction)
	case session.EventConnection:
		return "Connection change"
	case session.EventLock:
		return "Lock change"
	default:
		return string(activity.Type)
	}
}

func describePackage(info *session.PackageInfo) string {
	switch info.UpdateType {
	case session.PackageAdded:
		return "Create package " + info.Name
	case session.PackageSaved:
		return "Save package " + info.Name
	case session.PackageRenamed:
		return fmt.Sprintf("Rename package %s to %s", info.Name, info.NewName)
	case session.PackageDeleted:
		return "Delete package " + info.Name
	default:
		return fmt.Sprintf("%s package %s", info.UpdateType, info.Name)
	}
}

func describeTransaction(info *session.TransactionInfo) string {
	verb := "Edit"
	created, removed := 0, 0
	for _, obj := range info.ExportedObjects {
		if obj.AllowCreate {
			created++
		}
		if obj.PendingKill {
			removed++
		}
	}
	// Priority order: creations over removals over plain edits.
	if created > 0 {
		verb = "Create"
	} else if removed > 0 {
		verb = "Remove"
	}

	count := len(info.ExportedObjects)
	noun := "objects"
	if count == 1 {
		noun = "object"
	}
	if len(info.ModifiedPackages) == 0 {
		return fmt.Sprintf("%s %d %s", verb, count, noun)
	}
	return fmt.Sprintf("%s %d %s in %s", verb, count, noun, strings.Join(info.ModifiedPackages, ", "))
}
