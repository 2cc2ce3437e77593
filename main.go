package main

import "github.com/cmpile/cmpile/cmd"

func main() {
	cmd.Execute()
}
