package store

import (
	"sort"
	"strings"
	"time"
)

func parentCollection(docPath string) string {
	i := strings.LastIndexByte(docPath, '/')
	if i < 0 {
		return ""
	}
	return docPath[:i]
}

// sortDocs orders enumeration results by creation time, then path, so
// scans and subcollection reads are deterministic.
func sortDocs(docs []*Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].Path < docs[j].Path
	})
}

func copyDoc(d *Document) *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Fields = copyFields(d.Fields)
	return &cp
}

func copyFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyFields(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case time.Time:
		return x
	default:
		// Scalars (string, bool, numbers, nil) are immutable.
		return x
	}
}

// mergeFields applies a merge update in place: top-level keys overwrite,
// other keys are preserved. Matches the Update semantics of the client's
// document SDK.
func mergeFields(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = copyValue(v)
	}
}
