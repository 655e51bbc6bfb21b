package main

import "github.com/mkadlec/facegallery/cmd"

func main() {
	cmd.Execute()
}
