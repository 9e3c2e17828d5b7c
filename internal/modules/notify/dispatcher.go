package notify

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	syncmod "github.com/mkandawire/possync/internal/modules/sync"
)

// LogDispatcher renders sync reports to the process log. It stands in for
// an email or chat dispatcher in deployments that have none configured.
type LogDispatcher struct{}

// NewLogDispatcher creates a dispatcher that writes reports to the log.
func NewLogDispatcher() *LogDispatcher { return &LogDispatcher{} }

// Notify writes one line per entity, failures first, so a scan of the log
// tail shows what needs attention.
func (d *LogDispatcher) Notify(_ context.Context, report syncmod.Report) error {
	entities := make([]syncmod.Entity, 0, len(report.Outcomes))
	for entity := range report.Outcomes {
		entities = append(entities, entity)
	}
	sort.Slice(entities, func(i, j int) bool {
		fi := isFailure(report.Outcomes[entities[i]])
		fj := isFailure(report.Outcomes[entities[j]])
		if fi != fj {
			return fi
		}
		return entities[i] < entities[j]
	})

	log.Printf("sync report [%s]: %d entities", report.Environment, len(entities))
	for _, entity := range entities {
		log.Printf("  %s", formatOutcome(entity, report.Outcomes[entity]))
	}
	return nil
}

func isFailure(o syncmod.Outcome) bool {
	_, ok := o.(syncmod.Failure)
	return ok
}

func formatOutcome(entity syncmod.Entity, o syncmod.Outcome) string {
	switch v := o.(type) {
	case syncmod.Success:
		r := v.Result
		return fmt.Sprintf("%s: ok processed=%d added=%d updated=%d skipped=%d deleted=%d in %.2fs",
			entity, r.RecordsProcessed, r.RecordsAdded, r.RecordsUpdated,
			r.RecordsSkipped, r.RecordsDeleted, r.DurationSeconds)
	case syncmod.Failure:
		return fmt.Sprintf("%s: FAILED after %.2fs: %s",
			entity, v.DurationSeconds, strings.Join(v.Errors, "; "))
	}
	return fmt.Sprintf("%s: unknown outcome", entity)
}
