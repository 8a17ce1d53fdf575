package main

import "github.com/terraconstructs/campusapi/cmd"

func main() {
	cmd.Execute()
}
