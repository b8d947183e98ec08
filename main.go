package main

import "github.com/frahmantamala/credify/cmd"

func main() {
	cmd.Execute()
}
