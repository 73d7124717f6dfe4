// certviewer verifies Blockcerts certificates from the command line.
package main

import "github.com/information-sharing-networks/blockcerts-viewer/internal/cli"

func main() {
	cli.Execute()
}
