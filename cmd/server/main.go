package main

import "salarysim/internal/app/server"

func main() {
	server.Run()
}
