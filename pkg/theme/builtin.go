package theme

func registerBuiltins() {
	for _, t := range []Theme{
		{
			Name:       "default",
			Foreground: "#d4d4d4",
			Background: "#1e1e1e",
			Highlight:  "#7c3aed",
			Warning:    "#e06c75",
			Charging:   "#4ec970",
			Dim:        "#6b6b6b",
		},
		{
			Name:       "gruvbox",
			Foreground: "#ebdbb2",
			Background: "#282828",
			Highlight:  "#fe8019",
			Warning:    "#fb4934",
			Charging:   "#b8bb26",
			Dim:        "#928374",
		},
		{
			Name:       "nord",
			Foreground: "#eceff4",
			Background: "#2e3440",
			Highlight:  "#88c0d0",
			Warning:    "#bf616a",
			Charging:   "#a3be8c",
			Dim:        "#4c566a",
		},
		{
			Name:       "catppuccin",
			Foreground: "#cdd6f4",
			Background: "#1e1e2e",
			Highlight:  "#cba6f7",
			Warning:    "#f38ba8",
			Charging:   "#a6e3a1",
			Dim:        "#6c7086",
		},
		{
			Name:       "dracula",
			Foreground: "#f8f8f2",
			Background: "#282a36",
			Highlight:  "#bd93f9",
			Warning:    "#ff5555",
			Charging:   "#50fa7b",
			Dim:        "#6272a4",
		},
		{
			Name:       "tokyo-night",
			Foreground: "#c0caf5",
			Background: "#1a1b26",
			Highlight:  "#7aa2f7",
			Warning:    "#f7768e",
			Charging:   "#9ece6a",
			Dim:        "#565f89",
		},
	} {
		Register(t)
	}
}
