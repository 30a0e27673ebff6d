package main

import "github.com/querybridge/querybridge/cmd"

func main() {
	cmd.Execute()
}
