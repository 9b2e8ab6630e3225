package main

import "fedimod/internal/cmd"

func main() {
	cmd.Run()
}
