package main

import "github.com/cali-dev/cali/cmd"

func main() {
	cmd.Execute()
}
