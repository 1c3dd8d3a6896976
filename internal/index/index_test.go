package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sevenzip/internal/format"
	"github.com/meigma/sevenzip/internal/header"
)

func streamsInfo(folderSizes []uint64, streams [][]uint64) *header.StreamsInfo {
	si := &header.StreamsInfo{
		PackSizes:   make([]uint64, len(folderSizes)),
		Folders:     make([]header.Folder, len(folderSizes)),
		NumStreams:  make([]int, len(folderSizes)),
		StreamSizes: streams,
	}
	for i, size := range folderSizes {
		si.Folders[i].UnpackSize = size
		si.NumStreams[i] = len(streams[i])
	}
	return si
}

func filesInfo(emptyStream ...bool) *header.FilesInfo {
	return &header.FilesInfo{
		NumFiles:    len(emptyStream),
		EmptyStream: emptyStream,
		EmptyFile:   make([]bool, len(emptyStream)),
		Anti:        make([]bool, len(emptyStream)),
	}
}

func TestBuildTilesSolidFolder(t *testing.T) {
	t.Parallel()

	si := streamsInfo([]uint64{35}, [][]uint64{{10, 25}})
	fi := filesInfo(false, true, false)

	idx, err := Build(si, fi)
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	e0, _ := idx.Entry(0)
	assert.Equal(t, Entry{Folder: 0, Offset: 0, Length: 10}, e0)

	e1, _ := idx.Entry(1)
	assert.Equal(t, Entry{Folder: -1}, e1)

	e2, _ := idx.Entry(2)
	assert.Equal(t, Entry{Folder: 0, Offset: 10, Length: 25}, e2)
}

func TestBuildSpansFolders(t *testing.T) {
	t.Parallel()

	si := streamsInfo([]uint64{8, 4}, [][]uint64{{8}, {4}})
	fi := filesInfo(false, false)

	idx, err := Build(si, fi)
	require.NoError(t, err)

	e0, _ := idx.Entry(0)
	assert.Equal(t, Entry{Folder: 0, Offset: 0, Length: 8}, e0)
	e1, _ := idx.Entry(1)
	assert.Equal(t, Entry{Folder: 1, Offset: 0, Length: 4}, e1)
}

func TestBuildRejectsGap(t *testing.T) {
	t.Parallel()

	// Streams cover 30 of the folder's 35 bytes.
	si := streamsInfo([]uint64{35}, [][]uint64{{10, 20}})
	fi := filesInfo(false, false)

	_, err := Build(si, fi)
	assert.ErrorIs(t, err, format.ErrSizeMismatch)
}

func TestBuildRejectsOverrun(t *testing.T) {
	t.Parallel()

	si := streamsInfo([]uint64{35}, [][]uint64{{10, 30}})
	fi := filesInfo(false, false)

	_, err := Build(si, fi)
	assert.ErrorIs(t, err, format.ErrSizeMismatch)
}

func TestBuildRejectsFileWithoutFolder(t *testing.T) {
	t.Parallel()

	si := streamsInfo([]uint64{8}, [][]uint64{{8}})
	fi := filesInfo(false, false)

	_, err := Build(si, fi)
	assert.ErrorIs(t, err, format.ErrSizeMismatch)
}

func TestBuildRejectsLeftoverStream(t *testing.T) {
	t.Parallel()

	si := streamsInfo([]uint64{12}, [][]uint64{{8, 4}})
	fi := filesInfo(false)

	_, err := Build(si, fi)
	assert.ErrorIs(t, err, format.ErrSizeMismatch)
}

func TestBuildRejectsStreamWithoutStreamsInfo(t *testing.T) {
	t.Parallel()

	_, err := Build(nil, filesInfo(false))
	assert.ErrorIs(t, err, format.ErrSizeMismatch)
}

func TestBuildAllEmpty(t *testing.T) {
	t.Parallel()

	idx, err := Build(nil, filesInfo(true, true))
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	e, ok := idx.Entry(0)
	require.True(t, ok)
	assert.Equal(t, Entry{Folder: -1}, e)

	_, ok = idx.Entry(2)
	assert.False(t, ok)
}
