// cmd/rfidctl/main.go
package main

import "rfid-bridge/internal/cli"

func main() {
	cli.Execute()
}
