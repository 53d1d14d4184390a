package filters

// Context is what a running filter can see of the site. Every access is
// recorded as a dependency of the rep being compiled. Reading the compiled
// content or path of another rep waits until that rep has been compiled.
type Context interface {
	Item() ItemView
	Rep() RepView
	Items() ItemsView
	Config(key string) any

	// LayoutContent returns the content being laid out when the filter runs
	// as part of a layout action, and "" otherwise.
	LayoutContent() string

	// OutputFilename is the file a binary-producing filter writes to.
	OutputFilename() string
}

// ItemView is a read-only view of an item.
type ItemView interface {
	Identifier() string
	Attribute(key string) any
	RawContent() (string, error)
	Rep(name string) (RepView, error)

	// CompiledContent and Path read the default rep.
	CompiledContent(snapshot string) (string, error)
	Path() (string, error)
}

// RepView is a read-only view of an item rep. Paths are known before
// compilation starts; raw paths point at files that only exist once the
// rep has been compiled.
type RepView interface {
	Name() string
	CompiledContent(snapshot string) (string, error)
	Path(snapshot string) (string, error)
	RawPath(snapshot string) (string, error)
}

// ItemsView is a read-only view of all items. Lookups by pattern depend
// on the raw content of matching items, including ones added later.
type ItemsView interface {
	Find(pattern string) (ItemView, bool)
	FindAll(pattern string) []ItemView
}
