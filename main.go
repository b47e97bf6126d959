package main

import "github.com/sonofy/dwhpipe/cmd"

func main() {
	cmd.Execute()
}
