package ai

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Placeholder is an offline provider for trying the tool without an
// API key. It answers every question by previewing the first table
// of the schema found in the prompt.
type Placeholder struct {
	latency time.Duration
}

var _ Provider = (*Placeholder)(nil)

func NewPlaceholder() *Placeholder {
	return &Placeholder{latency: 300 * time.Millisecond}
}

func (p *Placeholder) Name() string {
	return "placeholder"
}

var reFirstTable = regexp.MustCompile(`(?m)^Table: ([A-Za-z0-9_."]+)`)

func (p *Placeholder) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	// Simulate network latency
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if opts.JSON {
		return `{"suggestions": []}`, nil
	}
	if opts.Purpose == "explain" {
		return "- The placeholder provider cannot explain queries. Configure a real provider.", nil
	}

	table := ""
	for _, m := range messages {
		if m.Role != RoleSystem {
			continue
		}
		if match := reFirstTable.FindStringSubmatch(m.Content); match != nil {
			table = match[1]
			break
		}
	}
	if table == "" {
		return "MISSING: the placeholder provider found no tables in the schema", nil
	}
	return fmt.Sprintf("```sql\nSELECT * FROM %s LIMIT 10\n```\nPreview of %s (placeholder provider, configure a real one for answers).", table, table), nil
}
