// locks.go — взаимное исключение операций над одним блобом.
package service

import "sync"

// fileLocks — набор мьютексов по идентификатору файла.
// Edit и Delete одного файла не должны выполняться одновременно:
// гонка перезаписи и удаления одного блоба исключается здесь,
// мутации документа метаданных сериализует сам metastore.
//
// Мьютексы не освобождаются: их число ограничено числом файлов,
// когда-либо изменявшихся за время жизни процесса.
type fileLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFileLocks() *fileLocks {
	return &fileLocks{locks: make(map[string]*sync.Mutex)}
}

// lock блокирует мьютекс файла, создавая его при первом обращении.
func (fl *fileLocks) lock(fileID string) {
	fl.mu.Lock()
	m, ok := fl.locks[fileID]
	if !ok {
		m = &sync.Mutex{}
		fl.locks[fileID] = m
	}
	fl.mu.Unlock()

	m.Lock()
}

// unlock освобождает мьютекс файла.
func (fl *fileLocks) unlock(fileID string) {
	fl.mu.Lock()
	m := fl.locks[fileID]
	fl.mu.Unlock()

	if m != nil {
		m.Unlock()
	}
}
