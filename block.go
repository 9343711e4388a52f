package jsblock

// Block is a jsblock fence of a markdown page.
type Block struct {
	ID       string
	Language string            // "js" or "javascript"
	Flags    []string          // "readonly", "norun", "noconsole", "noreset", "nolines"
	Metadata map[string]string // key=value pairs of the fence, id included
	Content  string
	Options  Options // page options with the fence's overrides applied
	Line     int     // line of the opening fence in the source file
}
