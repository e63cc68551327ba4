package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// Типы файлов, допустимые как доказательства по спору: изображения,
// PDF и ZIP-архивы. Тип определяется по сигнатуре, не по расширению.
var allowedEvidenceTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
	"application/pdf": {},
	"application/zip": {},
}

// EvidenceStorage отвечает за файловое хранилище доказательств по спорам.
type EvidenceStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewEvidenceStorage создаёт файловое хранилище.
func NewEvidenceStorage(rootPath string, maxUploadMB int64) (*EvidenceStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &EvidenceStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save проверяет тип файла по сигнатуре, сохраняет его и возвращает
// относительный путь. Файлы раскладываются по каталогам споров.
func (s *EvidenceStorage) Save(ctx context.Context, disputeID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	head := make([]byte, 262)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", 0, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось определить тип файла: %w", err)
	}
	if _, ok := allowedEvidenceTypes[kind.MIME.Value]; !ok {
		return "", 0, fmt.Errorf("storage: тип файла %q не допускается как доказательство", kind.MIME.Value)
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%d%s", time.Now().UnixNano(), filepath.Ext(safeName))

	disputeDir := filepath.Join(s.rootPath, disputeID.String())
	if err := os.MkdirAll(disputeDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог спора: %w", err)
	}

	targetPath := filepath.Join(disputeDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	full := io.MultiReader(bytes.NewReader(head), r)
	limitedReader := io.LimitedReader{R: full, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	relative := filepath.Join(disputeID.String(), fileName)
	return relative, written, nil
}

// Delete удаляет файл из хранилища.
func (s *EvidenceStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, relativePath)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "evidence"
	}
	return name
}
