package main

import (
	"log"
	"time"

	"github.com/cybergodev/rsajwt"
)

func main() {

	keys, err := rsajwt.LoadKeyFile("keys.key")
	if err != nil {
		log.Fatalf("Key load failed: %v", err)
	}

	// Shared revocation list for several relay instances
	revocationConfig := rsajwt.RevocationConfig{
		MaxSize:           100000,
		CleanupInterval:   5 * time.Minute, // Redis expires entries itself
		EnableAutoCleanup: true,
		StoreType:         "redis", // Shared across processes
		RedisURL:          "redis://localhost:6379/0",
		TTL:               24 * time.Hour,
	}

	config := rsajwt.Config{
		HeaderAlg:        rsajwt.DefaultHeaderAlg,
		MaxTokenLength:   16384,
		EnableRevocation: true,
	}

	processor, err := rsajwt.NewWithRevocation(keys, revocationConfig, config)
	if err != nil {
		log.Fatalf("Processor creation failed: %v", err)
	}
	defer processor.Close()

}
