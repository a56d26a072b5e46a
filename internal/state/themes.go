package state

import "slices"

// FallbackTheme is applied when the stored theme is not in the catalogue.
const FallbackTheme = "angular"

// themes is the catalogue of theme names the UI can apply: one custom theme
// followed by the standard daisyUI set.
var themes = []string{
	"angular",
	"light", "dark", "cupcake", "bumblebee", "emerald", "corporate",
	"synthwave", "retro", "cyberpunk", "valentine", "halloween",
	"garden", "forest", "aqua", "lofi", "pastel", "fantasy",
	"wireframe", "black", "luxury", "dracula", "cmyk", "autumn",
	"business", "acid", "lemonade", "night", "coffee", "winter",
	"dim", "nord", "sunset", "caramellatte", "abyss", "silk",
}

// Themes returns a copy of the theme catalogue.
func Themes() []string {
	return slices.Clone(themes)
}

// IsKnownTheme reports whether name is in the catalogue.
func IsKnownTheme(name string) bool {
	return slices.Contains(themes, name)
}

// SystemTheme picks the theme used when no explicit preference is stored.
func SystemTheme(prefersDark bool) string {
	if prefersDark {
		return "dark"
	}
	return FallbackTheme
}
