// Package dom реализует минимальную модель документа поверх golang.org/x/net/html:
// поиск по CSS-селекторам (github.com/andybalholm/cascadia), замену разметки, классы, атрибуты и подписку на события элементов.
//
// Все операции над документом и его элементами сериализуются одной блокировкой документа.
// Обработчики событий вызываются без блокировки, поэтому могут свободно менять документ.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Listener обрабатывает событие элемента.
type Listener func()

// Querier ищет элементы по CSS-селектору.
type Querier interface {
	QuerySelector(selector string) (Element, bool)
	QuerySelectorAll(selector string) []Element
}

// Element представляет элемент документа.
type Element interface {
	Querier

	NextElementSibling() (Element, bool)

	InnerHTML() string
	SetInnerHTML(markup string) error
	TextContent() string
	SetTextContent(text string)

	Attribute(name string) (string, bool)
	SetAttribute(name, value string)
	HasClass(name string) bool
	AddClass(name string)
	RemoveClass(name string)

	AddEventListener(event string, fn Listener)
	Dispatch(event string) int
}

// Document хранит разобранный HTML-документ.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	listeners map[*html.Node]map[string][]Listener
}

// Parse разбирает HTML-документ.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		root:      root,
		listeners: make(map[*html.Node]map[string][]Listener),
	}, nil
}

// ParseString разбирает HTML-документ из строки.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// QuerySelector возвращает первый элемент документа, подходящий под селектор.
// Некорректный селектор ничего не находит.
func (d *Document) QuerySelector(selector string) (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queryOne(d.root, selector)
}

// QuerySelectorAll возвращает все элементы документа, подходящие под селектор.
func (d *Document) QuerySelectorAll(selector string) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queryAll(d.root, selector)
}

// HTML сериализует документ целиком.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func (d *Document) queryOne(root *html.Node, s string) (Element, bool) {
	sel, err := compile(s)
	if err != nil {
		return nil, false
	}
	found := find(root, sel, 1)
	if len(found) == 0 {
		return nil, false
	}
	return &node{doc: d, n: found[0]}, true
}

func (d *Document) queryAll(root *html.Node, s string) []Element {
	sel, err := compile(s)
	if err != nil {
		return nil
	}
	found := find(root, sel, 0)
	out := make([]Element, 0, len(found))
	for _, n := range found {
		out = append(out, &node{doc: d, n: n})
	}
	return out
}

// forget удаляет обработчики событий поддерева, вынутого из документа.
func (d *Document) forget(n *html.Node) {
	delete(d.listeners, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.forget(c)
	}
}

type node struct {
	doc *Document
	n   *html.Node
}

func (e *node) QuerySelector(selector string) (Element, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.queryOne(e.n, selector)
}

func (e *node) QuerySelectorAll(selector string) []Element {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.queryAll(e.n, selector)
}

func (e *node) NextElementSibling() (Element, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return &node{doc: e.doc, n: s}, true
		}
	}
	return nil, false
}

func (e *node) InnerHTML() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func (e *node) SetInnerHTML(markup string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	nodes, err := html.ParseFragment(strings.NewReader(markup), e.n)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}

	e.removeChildren()
	for _, c := range nodes {
		e.n.AppendChild(c)
	}
	return nil
}

func (e *node) TextContent() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(e.n)
	return sb.String()
}

func (e *node) SetTextContent(text string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	e.removeChildren()
	if text != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func (e *node) removeChildren() {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		e.doc.forget(c)
		c = next
	}
}

func (e *node) Attribute(name string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return attr(e.n, name)
}

func (e *node) SetAttribute(name, value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.n, name, value)
}

func (e *node) HasClass(name string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	classes, _ := attr(e.n, "class")
	return slices.Contains(strings.Fields(classes), name)
}

func (e *node) AddClass(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	classes, _ := attr(e.n, "class")
	fields := strings.Fields(classes)
	if slices.Contains(fields, name) {
		return
	}
	setAttr(e.n, "class", strings.Join(append(fields, name), " "))
}

func (e *node) RemoveClass(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	classes, ok := attr(e.n, "class")
	if !ok {
		return
	}
	fields := slices.DeleteFunc(strings.Fields(classes), func(c string) bool { return c == name })
	setAttr(e.n, "class", strings.Join(fields, " "))
}

func (e *node) AddEventListener(event string, fn Listener) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	byEvent := e.doc.listeners[e.n]
	if byEvent == nil {
		byEvent = make(map[string][]Listener)
		e.doc.listeners[e.n] = byEvent
	}
	byEvent[event] = append(byEvent[event], fn)
}

// Dispatch вызывает обработчики события элемента и возвращает их количество.
func (e *node) Dispatch(event string) int {
	e.doc.mu.Lock()
	listeners := slices.Clone(e.doc.listeners[e.n][event])
	e.doc.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return len(listeners)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
