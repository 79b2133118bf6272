package theme

func registerBuiltins() {
	for _, t := range []Theme{
		defaultTheme(),
		gruvboxTheme(),
		nordTheme(),
		catppuccinTheme(),
		draculaTheme(),
		tokyoNightTheme(),
	} {
		Register(t)
	}
}

// defaultTheme is the dark neutral palette with a purple accent.
func defaultTheme() Theme {
	return Theme{
		Name:        "default",
		Foreground:  "#d4d4d4",
		Dim:         "#6b6b6b",
		Accent:      "#7C3AED",
		Border:      "#3e3e3e",
		BorderFocus: "#7C3AED",
		Title:       "#d4d4d4",
		OK:          "#4ec970",
		Warn:        "#e5c07b",
		Error:       "#e06c75",
		HelpKey:     "#7C3AED",
		HelpDesc:    "#6b6b6b",
	}
}

func gruvboxTheme() Theme {
	return Theme{
		Name:        "gruvbox",
		Foreground:  "#ebdbb2",
		Dim:         "#928374",
		Accent:      "#fe8019",
		Border:      "#504945",
		BorderFocus: "#fe8019",
		Title:       "#ebdbb2",
		OK:          "#b8bb26",
		Warn:        "#fabd2f",
		Error:       "#fb4934",
		HelpKey:     "#fe8019",
		HelpDesc:    "#928374",
	}
}

func nordTheme() Theme {
	return Theme{
		Name:        "nord",
		Foreground:  "#eceff4",
		Dim:         "#4c566a",
		Accent:      "#88c0d0",
		Border:      "#3b4252",
		BorderFocus: "#88c0d0",
		Title:       "#eceff4",
		OK:          "#a3be8c",
		Warn:        "#ebcb8b",
		Error:       "#bf616a",
		HelpKey:     "#88c0d0",
		HelpDesc:    "#4c566a",
	}
}

func catppuccinTheme() Theme {
	return Theme{
		Name:        "catppuccin",
		Foreground:  "#cdd6f4",
		Dim:         "#6c7086",
		Accent:      "#cba6f7",
		Border:      "#313244",
		BorderFocus: "#cba6f7",
		Title:       "#cdd6f4",
		OK:          "#a6e3a1",
		Warn:        "#f9e2af",
		Error:       "#f38ba8",
		HelpKey:     "#cba6f7",
		HelpDesc:    "#6c7086",
	}
}

func draculaTheme() Theme {
	return Theme{
		Name:        "dracula",
		Foreground:  "#f8f8f2",
		Dim:         "#6272a4",
		Accent:      "#bd93f9",
		Border:      "#44475a",
		BorderFocus: "#bd93f9",
		Title:       "#f8f8f2",
		OK:          "#50fa7b",
		Warn:        "#f1fa8c",
		Error:       "#ff5555",
		HelpKey:     "#bd93f9",
		HelpDesc:    "#6272a4",
	}
}

func tokyoNightTheme() Theme {
	return Theme{
		Name:        "tokyo-night",
		Foreground:  "#c0caf5",
		Dim:         "#565f89",
		Accent:      "#7aa2f7",
		Border:      "#292e42",
		BorderFocus: "#7aa2f7",
		Title:       "#c0caf5",
		OK:          "#9ece6a",
		Warn:        "#e0af68",
		Error:       "#f7768e",
		HelpKey:     "#7aa2f7",
		HelpDesc:    "#565f89",
	}
}
