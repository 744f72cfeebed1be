// The main package for the fbscraper executable.
package main

import (
	"github.com/vkotov/fbscraper/cmd"
)

func main() {
	cmd.Execute()
}
