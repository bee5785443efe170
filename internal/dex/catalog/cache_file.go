// internal/dex/catalog/cache_file.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-swapquote/internal/types"
)

// cacheFile формат файла кэша пулов
type cacheFile struct {
	ProgramID solana.PublicKey `json:"programId"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Pools     []types.Pool     `json:"pools"`
}

// loadCacheFile поднимает набор из файла, если он моложе TTL
func (c *PoolCatalog) loadCacheFile() {
	path := c.cfg.CacheFile
	stat, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("Не удалось прочитать кэш пулов", zap.String("file", path), zap.Error(err))
		}
		return
	}
	if c.now().Sub(stat.ModTime()) > c.cfg.CacheTTL {
		c.logger.Debug("pool cache file is stale", zap.String("file", path))
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("Не удалось прочитать кэш пулов", zap.String("file", path), zap.Error(err))
		return
	}
	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("Invalid pool cache", zap.String("file", path), zap.Error(err))
		return
	}
	if !cached.ProgramID.Equals(c.cfg.ProgramID) {
		c.logger.Debug("pool cache belongs to another program", zap.String("program", cached.ProgramID.String()))
		return
	}

	c.store(cached.Pools, stat.ModTime())
	c.logger.Info("Пулы загружены из кэша", zap.Int("pools", len(cached.Pools)), zap.String("file", path))
}

// saveCacheFile атомарно перезаписывает файл кэша
func (c *PoolCatalog) saveCacheFile() {
	if c.cfg.CacheFile == "" {
		return
	}
	if err := c.writeCacheFile(); err != nil {
		c.logger.Warn("Не удалось сохранить кэш пулов", zap.String("file", c.cfg.CacheFile), zap.Error(err))
	}
}

func (c *PoolCatalog) writeCacheFile() error {
	c.mu.RLock()
	payload := cacheFile{ProgramID: c.cfg.ProgramID, FetchedAt: c.fetchedAt, Pools: c.pools}
	data, err := json.Marshal(payload)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal pool cache: %w", err)
	}

	dir := filepath.Dir(c.cfg.CacheFile)
	tmp, err := os.CreateTemp(dir, ".pools-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write pool cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close pool cache: %w", err)
	}
	return os.Rename(tmp.Name(), c.cfg.CacheFile)
}
