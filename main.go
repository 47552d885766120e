package main

import (
	"fmt"

	_ "github.com/agentuity/go-cache/appcache"
	_ "github.com/agentuity/go-cache/cache"
	_ "github.com/agentuity/go-cache/logger"
	_ "github.com/agentuity/go-cache/memoize"
	_ "github.com/agentuity/go-cache/querycache"
)

func main() {
	fmt.Println("Hi")
}
