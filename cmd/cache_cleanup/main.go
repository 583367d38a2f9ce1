package main

import (
	"context"
	"log"
	"os"
	"path"
	"path/filepath"

	"gigmarket/internal/config"
	"gigmarket/internal/database"
	"gigmarket/internal/domain/listing"
)

// cache_cleanup removes files from the upload cache that no listing
// references anymore, e.g. copies left behind by failed edits.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	images, err := listing.NewRepository(db).ListAllImages(context.Background())
	if err != nil {
		log.Fatalf("list listing images failed: %v", err)
	}
	referenced := make(map[string]bool, len(images))
	for _, img := range images {
		referenced[path.Base(img)] = true
	}

	entries, err := os.ReadDir(cfg.UploadCacheDir)
	if os.IsNotExist(err) {
		log.Printf("upload cache %s does not exist, nothing to do", cfg.UploadCacheDir)
		return
	}
	if err != nil {
		log.Fatalf("read upload cache failed: %v", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || referenced[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(cfg.UploadCacheDir, e.Name())); err != nil {
			log.Printf("remove %s failed: %v", e.Name(), err)
			continue
		}
		removed++
	}

	log.Printf("upload cache cleanup completed: scanned=%d removed=%d", len(entries), removed)
}
