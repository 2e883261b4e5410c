package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"standarr/config"
	"standarr/services"
	"standarr/storage"
)

// snapshotStore ist der Teil des S3Store, den Upload und Rotation brauchen.
type snapshotStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]storage.BlobInfo, error)
}

func main() {
	log.Println("Starte Export-Snapshot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}
	if !cfg.S3Configured() {
		log.Fatalf("S3_ENDPOINT, S3_KEY, S3_SECRET und S3_BUCKET müssen gesetzt sein")
	}
	ctx := context.Background()

	// 1. Datenbank öffnen
	db, err := storage.OpenDB(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Verbinden mit der Datenbank: %v", err)
	}

	// 2. S3-Client erstellen
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}
	store := storage.NewS3Store(client, cfg.S3Bucket)

	// 3. Alle Listen exportieren und hochladen
	lists := services.NewListService(db, zap.NewNop())
	exporter := services.NewExporter(db, cfg.CatalogName)
	all, err := lists.Lists(ctx)
	if err != nil {
		log.Fatalf("Fehler beim Laden der Listen: %v", err)
	}

	now := time.Now().UTC()
	failed := 0
	for _, list := range all {
		if err := snapshotList(ctx, exporter, store, cfg.SnapshotPrefix, list.ID, now); err != nil {
			log.Printf("Fehler beim Export von Liste %d: %v", list.ID, err)
			failed++
			continue
		}
		// 4. Alte Snapshots rotieren
		if err := rotateSnapshots(ctx, store, listPrefix(cfg.SnapshotPrefix, list.ID), cfg.KeepSnapshots); err != nil {
			log.Printf("Fehler bei der Rotation für Liste %d: %v", list.ID, err)
		}
	}
	if failed > 0 {
		log.Fatalf("%d von %d Listen konnten nicht exportiert werden", failed, len(all))
	}
	log.Printf("Export-Snapshot erfolgreich abgeschlossen (%d Listen).", len(all))
}

func listPrefix(prefix string, listID uint) string {
	return fmt.Sprintf("%s/list-%d-", strings.TrimSuffix(prefix, "/"), listID)
}

func snapshotKey(prefix string, listID uint, at time.Time) string {
	return listPrefix(prefix, listID) + at.UTC().Format("2006-01-02T15-04-05Z") + ".txt"
}

func snapshotList(ctx context.Context, exporter *services.Exporter, store snapshotStore, prefix string, listID uint, at time.Time) error {
	text, err := exporter.ExportListAsText(ctx, listID)
	if err != nil {
		return err
	}
	key := snapshotKey(prefix, listID, at)
	if err := store.Put(ctx, key, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return err
	}
	log.Printf("Snapshot hochgeladen: %s", key)
	return nil
}

// rotateSnapshots behält die neuesten keep Objekte unter prefix und löscht die übrigen.
func rotateSnapshots(ctx context.Context, store snapshotStore, prefix string, keep int) error {
	blobs, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(blobs) <= keep {
		return nil
	}
	for _, blob := range blobs[keep:] {
		log.Printf("Lösche alten Snapshot: %s", blob.Key)
		if err := store.Delete(ctx, blob.Key); err != nil {
			log.Printf("Fehler beim Löschen von %s: %v", blob.Key, err)
		}
	}
	return nil
}
