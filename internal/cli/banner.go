package cli

import "fmt"

const banner = `
 _   _   _    _____                  _
| | | | / \  |  ___|_ _  ___ __ _  __| | ___
| | | |/ _ \ | |_ / _' |/ __/ _' |/ _' |/ _ \   %s
| |_| / ___ \|  _| (_| | (_| (_| | (_| |  __/
 \___/_/   \_\_|  \__,_|\___\__,_|\__,_|\___|
Typed OPC-UA property access
`

// Foreground colors.
const (
	Black uint8 = iota + 30
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

// Colorize colorizes a string by a given color.
func Colorize(s string, c uint8) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}

func printBanner(version string) {
	fmt.Println(Colorize(fmt.Sprintf(banner, version), Cyan))
}
