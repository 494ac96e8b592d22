package handlers

import "strings"

// matchPath matches a document path against a template of the form
// "chats/{chatId}/messages/{messageId}". On a match it returns the
// extracted parameters.
func matchPath(pattern, path string) (map[string]string, bool) {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	ds := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(ds) || len(ds) == 0 {
		return nil, false
	}
	var params map[string]string
	for i, seg := range ps {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if ds[i] == "" {
				return nil, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[seg[1:len(seg)-1]] = ds[i]
			continue
		}
		if seg != ds[i] {
			return nil, false
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}
