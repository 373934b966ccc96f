package main

import "github.com/koki-develop/asciimage/cmd"

func main() {
	cmd.Execute()
}
