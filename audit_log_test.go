package dbqflag

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAuditLog_Append(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterAuditLog(&buf)
	log.now = func() time.Time { return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC) }

	require.NoError(t, log.Append("Success processing check - qa_a102_Unverified_Events - 4 records"))
	require.NoError(t, log.Append("Failed Processing - qa_j102 - boom"))

	assert.Equal(t,
		"Success processing check - qa_a102_Unverified_Events - 4 records - 2024-03-05T10:30:00Z\n"+
			"Failed Processing - qa_j102 - boom - 2024-03-05T10:30:00Z\n",
		buf.String())
}

func TestAuditLogPath(t *testing.T) {
	day := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	got := AuditLogPath("/data/out", "SNPLPORE_2024", day)
	assert.Equal(t, filepath.Join("/data/out", "workspace", "SNPLPORE_2024_logFile_20241102.txt"), got)
}

func TestNewFileAuditLog(t *testing.T) {
	outDir := t.TempDir()
	log, err := NewFileAuditLog(outDir, "SNPLPORE_2023")
	require.NoError(t, err)

	require.NoError(t, log.Append("Successfully Finished All QC Checks for - SNPLPORE"))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(AuditLogPath(outDir, "SNPLPORE_2023", time.Now()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Successfully Finished All QC Checks for - SNPLPORE - "))
}
