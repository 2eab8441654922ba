package domain

import "strings"

// SceneList is the editable ordered list of scene prompts. Methods return a
// new list and never modify the receiver's backing array.
type SceneList []string

// Add appends text, which may be blank while the seller is still typing.
func (l SceneList) Add(text string) SceneList {
	out := make(SceneList, 0, len(l)+1)
	out = append(out, l...)
	return append(out, text)
}

// Set replaces the entry at i.
func (l SceneList) Set(i int, text string) (SceneList, error) {
	if i < 0 || i >= len(l) {
		return l, ErrSceneIndex
	}
	out := append(SceneList(nil), l...)
	out[i] = text
	return out, nil
}

// Remove drops the entry at i.
func (l SceneList) Remove(i int) (SceneList, error) {
	if i < 0 || i >= len(l) {
		return l, ErrSceneIndex
	}
	out := make(SceneList, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...), nil
}

// Active returns the non-blank entries in order.
func (l SceneList) Active() []string {
	out := make([]string, 0, len(l))
	for _, s := range l {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
