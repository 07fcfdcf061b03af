package main

import "github.com/jsphweid/tunator/cmd"

func main() {
	cmd.Execute()
}
