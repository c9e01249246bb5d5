package dom

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// compile разбирает список CSS-селекторов через запятую.
func compile(s string) (cascadia.SelectorGroup, error) {
	sel, err := cascadia.ParseGroup(s)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", s, err)
	}
	return sel, nil
}

// find возвращает потомков root, подходящих под селектор, в порядке документа.
// Сам root в выборку не входит, но его предки учитываются комбинаторами.
func find(root *html.Node, m cascadia.Matcher, limit int) []*html.Node {
	if limit == 1 {
		if n := cascadia.Query(root, m); n != nil {
			return []*html.Node{n}
		}
		return nil
	}
	found := cascadia.QueryAll(root, m)
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}
