package retention

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"signalgate/internal/models"
	"signalgate/internal/providers"
	"signalgate/internal/retention/interfaces"
)

// FileManager persists the entitlement store snapshot as zstd-compressed
// JSON, written atomically via tmp-file rename. Server-side persistence is
// what stops a holder from fabricating entitlements in local state.
type FileManager struct {
	store      *models.EntitlementStore
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, store *models.EntitlementStore, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		store:      store,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	storage := f.store.Snapshot()

	jsonData, err := json.Marshal(storage)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var storage models.Storage
	if err := json.Unmarshal(decompressedData, &storage); err != nil {
		return fmt.Errorf("snapshot parse: %w", err)
	}
	if storage.Version != models.StorageVersion {
		f.logger.Warnf(providers.TypeApp, "Snapshot version %d not supported, starting empty", storage.Version)
		return nil
	}

	f.store.Restore(&storage)
	return nil
}
