package main

import "github.com/atharva-sardar02/ad-mint-ai-sub012/internal/cli"

func main() {
	cli.Execute()
}
