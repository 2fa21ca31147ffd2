package main

import "github.com/kozaktomas/sunglasses/cmd"

func main() {
	cmd.Execute()
}
