package main

import "github.com/arttuliini/GPIO-Vasalli/internal/cli"

func main() {
	cli.Execute()
}
