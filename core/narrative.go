package core

// narrative.go — prose rendering of the sealed chain (spec.md §4.11
// ReadNarrative, a supplemented feature: the ledger is "prose-first", so a
// human-readable rendering of its contents belongs alongside the JSON
// chain view, not bolted on by a downstream tool).

import (
	"fmt"
	"strings"
)

// ReadNarrative renders every sealed block and entry as readable prose, in
// chain order. It performs no validation; callers needing integrity
// guarantees should pair it with ValidateIntegrity.
func ReadNarrative(blocks []Block) string {
	var b strings.Builder
	for _, block := range blocks {
		fmt.Fprintf(&b, "Block %d (mined at %s, previous hash %s):\n",
			block.Index, block.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"), shortHash(block.PreviousHash))
		if len(block.Entries) == 0 {
			b.WriteString("  (no entries)\n\n")
			continue
		}
		for i, e := range block.Entries {
			fmt.Fprintf(&b, "  [%d] %s (%s) declares intent %q, status %s:\n",
				i, e.Author, e.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"), e.Intent, e.ValidationStatus)
			fmt.Fprintf(&b, "      %s\n", indentContinuation(e.Content))
			for _, ref := range e.ParentRefs {
				fmt.Fprintf(&b, "      -> %s of entry %s\n", ref.Relationship, (Location{BlockIndex: ref.BlockIndex, EntryIndex: ref.EntryIndex}).String())
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12] + "..."
}

func indentContinuation(content string) string {
	return strings.ReplaceAll(content, "\n", "\n      ")
}
