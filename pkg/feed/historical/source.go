// Package historical replays recorded book snapshots from fixed-size binary
// files through memory mapping, so full-session replays avoid read syscalls on
// the hot path.
package historical

import (
	"fmt"
	"io"
	"sync"
	"unsafe"

	"golang.org/x/exp/mmap"

	"github.com/peter-kozarec/paperdesk/pkg/feed"
)

const recordSize = int64(unsafe.Sizeof(BinaryBookRecord{}))

// RecordFile is a memory-mapped file of BinaryBookRecord entries sorted by
// timestamp. Size validation and the record count are fixed at Open, so a read
// reduces to a bounds check and one copy out of the mapping.
type RecordFile struct {
	reader *mmap.ReaderAt
	count  int64
	pool   sync.Pool
}

func OpenRecordFile(path string) (*RecordFile, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open record file %q: %w", path, err)
	}

	size := int64(reader.Len())
	if size%recordSize != 0 {
		_ = reader.Close()
		return nil, fmt.Errorf("record file %q: size %d is not a multiple of record size %d", path, size, recordSize)
	}

	return &RecordFile{
		reader: reader,
		count:  size / recordSize,
		pool: sync.Pool{
			New: func() interface{} {
				buffer := make([]byte, recordSize)
				return &buffer
			},
		},
	}, nil
}

// Len returns the record count.
func (f *RecordFile) Len() int64 {
	return f.count
}

func (f *RecordFile) Close() error {
	return f.reader.Close()
}

// Read copies the record at index out of the mapping. Indexes past the end
// report feed.ErrExhausted.
func (f *RecordFile) Read(index int64, record *BinaryBookRecord) error {
	if index < 0 || index >= f.count {
		return feed.ErrExhausted
	}

	buffer := f.pool.Get().(*[]byte)
	defer f.pool.Put(buffer)

	if _, err := f.reader.ReadAt(*buffer, index*recordSize); err != nil && err != io.EOF {
		return fmt.Errorf("unable to read record %d: %w", index, err)
	}

	*record = *(*BinaryBookRecord)(unsafe.Pointer(&(*buffer)[0])) // #nosec G103
	return nil
}

// SearchTimestamp returns the index of the first record stamped at or after
// tsNano, or Len() when every record is earlier.
func (f *RecordFile) SearchTimestamp(tsNano int64) (int64, error) {
	var record BinaryBookRecord

	low, high := int64(0), f.count-1
	for low <= high {
		mid := (low + high) / 2
		if err := f.Read(mid, &record); err != nil {
			return 0, err
		}
		if record.TimeStamp < tsNano {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return low, nil
}
