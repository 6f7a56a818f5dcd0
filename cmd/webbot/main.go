package main

import "webbot/internal/bootstrap"

func main() {
	bootstrap.Run()
}
