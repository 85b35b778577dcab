package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/bitebliss/bitebliss-engine/pkg/recipes"
)

func main() {
	if err := recipes.Command().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
