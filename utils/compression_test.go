package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDataRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("repeated chunk text ", 100))

	for _, algo := range []CompressionAlgorithm{CompressionNone, CompressionGzip, CompressionZlib} {
		compressed, err := CompressData(data, algo)
		if err != nil {
			t.Fatalf("%s compress: %v", algo, err)
		}
		restored, err := DecompressData(compressed, algo)
		if err != nil {
			t.Fatalf("%s decompress: %v", algo, err)
		}
		if !bytes.Equal(data, restored) {
			t.Errorf("%s round trip corrupted data", algo)
		}
		if algo != CompressionNone && len(compressed) >= len(data) {
			t.Errorf("%s did not shrink repetitive data", algo)
		}
	}
}

func TestCompressDataUnsupported(t *testing.T) {
	if _, err := CompressData([]byte("x"), "brotli"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestCompressTextSkipsSmallInput(t *testing.T) {
	small := "short chunk"
	data, algo, err := CompressText(small)
	if err != nil {
		t.Fatal(err)
	}
	if algo != CompressionNone {
		t.Errorf("small text should not be compressed, got %s", algo)
	}
	if string(data) != small {
		t.Error("small text must pass through unchanged")
	}

	large := strings.Repeat("chunk body ", 100)
	data, algo, err = CompressText(large)
	if err != nil {
		t.Fatal(err)
	}
	if algo != CompressionGzip {
		t.Errorf("large text should be gzipped, got %s", algo)
	}
	restored, err := DecompressText(data, algo)
	if err != nil {
		t.Fatal(err)
	}
	if restored != large {
		t.Error("large text round trip corrupted")
	}
}
