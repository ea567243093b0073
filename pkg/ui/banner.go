package ui

import (
	"fmt"
	"strings"
)

const bannerArt = `
           __           __    _           __
  ___  ___/ /__ ____   / /_  (_)__  ___  / /
 / -_)/ _  / _ '/ -_) / _ \/ / _ \/ _ \/_/
 \__/ \_,_/\_, /\__/ /_.__/_/_//_/\_,_(_)
          /___/
`

const separator = "-----------------------------------------------------"

// Banner prints the application banner.
func (c *Console) Banner(version string) {
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(c.out, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(c.out, "    WAF edge deployment  %s\n\n", VersionStyle.Render("v"+version))
}

// MenuItem is one numbered menu entry.
type MenuItem struct {
	Key   string
	Title string
	Hint  string
}

// Menu prints the numbered operation menu.
func (c *Console) Menu(items []MenuItem) {
	fmt.Fprintf(c.out, "\n%s\n%s\n%s\n\n", LabelStyle.Render(separator), TitleStyle.Render("Menu"), LabelStyle.Render(separator))
	for _, it := range items {
		line := fmt.Sprintf("  %s  %s", MenuKeyStyle.Render("["+it.Key+"]"), MenuItemStyle.Render(it.Title))
		if it.Hint != "" {
			line += "  " + HelpStyle.Render(it.Hint)
		}
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintf(c.out, "\n%s\n", LabelStyle.Render(separator))
}
