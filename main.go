package main

import "github.com/cppla/gympoints/cmd"

func main() {
	cmd.Execute()
}
