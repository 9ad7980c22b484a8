package main

import "github.com/nvr-ai/go-vision/cmd"

func main() {
	cmd.Execute()
}
