package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// print writes v as indented JSON under --json, otherwise calls text.
func (a *app) print(v any, text func(w io.Writer)) error {
	if a.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.out)
	return nil
}

func printOptional(w io.Writer, label string, v *string) {
	if v == nil {
		fmt.Fprintf(w, "%s: (unset)\n", label)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", label, *v)
}
