package main

import "github.com/aqasim81/manifest-migrate/internal/cli"

func main() {
	cli.Execute()
}
