package store

import (
	"fmt"
	"strings"
)

// Paths follow the collection/document alternation used by the client app:
// "users/u1", "activites/a1/chat/m1". An even number of segments names a
// document, an odd number names a collection.

func splitPath(p string) ([]string, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return nil, ErrInvalidPath
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return segs, nil
}

func docPath(p string) (clean, collection, id string, err error) {
	segs, err := splitPath(p)
	if err != nil {
		return "", "", "", err
	}
	if len(segs)%2 != 0 {
		return "", "", "", fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, p)
	}
	clean = strings.Join(segs, "/")
	id = segs[len(segs)-1]
	collection = strings.Join(segs[:len(segs)-1], "/")
	return clean, collection, id, nil
}

func collectionPath(p string) (string, error) {
	segs, err := splitPath(p)
	if err != nil {
		return "", err
	}
	if len(segs)%2 != 1 {
		return "", fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, p)
	}
	return strings.Join(segs, "/"), nil
}
