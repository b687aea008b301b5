package pgdisk

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rstms/fatvfs"
)

// Client is the subset of a pgx pool or connection the disk needs.
type Client interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
	CREATE TABLE IF NOT EXISTS fatvfs_blocks (
		volume TEXT NOT NULL,
		idx INTEGER NOT NULL,
		data BYTEA NOT NULL,
		PRIMARY KEY (volume, idx)
	)
`

// NewPool connects to dsn and checks the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, Fatal(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, Fatal(err)
	}
	return pool, nil
}

// EnsureSchema creates the block table if it does not exist.
func EnsureSchema(ctx context.Context, db Client) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return Fatal(err)
	}
	return nil
}

// Disk stores each block of a named volume as one row. Blocks that were
// never written read as zeros.
type Disk struct {
	db         Client
	ctx        context.Context
	volume     string
	blockSize  int
	blockCount int
	timeout    time.Duration
}

// ensure Disk implements fatvfs.BlockDevice
var _ fatvfs.BlockDevice = (*Disk)(nil)

// Open returns a disk for volume. ctx bounds the lifetime of every block
// operation, each of which also gets its own timeout.
func Open(ctx context.Context, db Client, volume string, blockSize, blockCount int, timeout time.Duration) (*Disk, error) {
	if volume == "" {
		return nil, Fatalf("volume name is empty")
	}
	if blockSize <= 0 || blockCount <= 0 {
		return nil, Fatalf("invalid geometry %dx%d", blockSize, blockCount)
	}
	return &Disk{
		db:         db,
		ctx:        ctx,
		volume:     volume,
		blockSize:  blockSize,
		blockCount: blockCount,
		timeout:    timeout,
	}, nil
}

func (d *Disk) BlockSize() int {
	return d.blockSize
}

func (d *Disk) BlockCount() int {
	return d.blockCount
}

func (d *Disk) Volume() string {
	return d.volume
}

func (d *Disk) opContext() (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(d.ctx)
	}
	return context.WithTimeout(d.ctx, d.timeout)
}

func (d *Disk) ReadBlock(index int, buf []byte) error {
	if err := fatvfs.CheckBlock(d, index, buf); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()

	query := `
		SELECT data
		FROM fatvfs_blocks
		WHERE volume = $1 AND idx = $2
	`

	var data []byte
	err := d.db.QueryRow(ctx, query, d.volume, index).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			clear(buf)
			return nil
		}
		return Fatal(err)
	}
	if len(data) != d.blockSize {
		return Fatalf("volume %s block %d holds %d bytes, want %d", d.volume, index, len(data), d.blockSize)
	}
	copy(buf, data)
	return nil
}

func (d *Disk) WriteBlock(index int, buf []byte) error {
	if err := fatvfs.CheckBlock(d, index, buf); err != nil {
		return err
	}
	ctx, cancel := d.opContext()
	defer cancel()

	query := `
		INSERT INTO fatvfs_blocks (volume, idx, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (volume, idx)
		DO UPDATE SET data = EXCLUDED.data
	`

	_, err := d.db.Exec(ctx, query, d.volume, index, buf)
	if err != nil {
		return Fatal(err)
	}
	return nil
}

// Drop deletes every stored block of the volume.
func (d *Disk) Drop() error {
	ctx, cancel := d.opContext()
	defer cancel()

	query := `
		DELETE FROM fatvfs_blocks
		WHERE volume = $1
	`

	if _, err := d.db.Exec(ctx, query, d.volume); err != nil {
		return Fatal(err)
	}
	return nil
}
