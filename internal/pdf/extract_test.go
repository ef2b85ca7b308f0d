package pdf

import (
	"bytes"
	"compress/zlib"
	"reflect"
	"testing"
)

// buildDoc wraps a content stream in a minimal document shell. When compress
// is true the body is deflated and a FlateDecode filter is declared.
func buildDoc(t *testing.T, content string, compress bool) []byte {
	t.Helper()
	body := []byte(content)
	filter := ""
	if compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			t.Fatalf("compressing fixture: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("closing compressor: %v", err)
		}
		body = buf.Bytes()
		filter = "/Filter /FlateDecode "
	}

	var doc bytes.Buffer
	doc.WriteString("%PDF-1.4\n")
	doc.WriteString("4 0 obj\n<< /Length 99 " + filter + ">>\nstream\n")
	doc.Write(body)
	doc.WriteString("\nendstream\nendobj\n")
	return doc.Bytes()
}

func TestExtractTokensLiteralStrings(t *testing.T) {
	t.Parallel()
	content := "BT /F1 12 Tf (Hello World) Tj ET"
	got := ExtractTokens(buildDoc(t, content, true))
	want := []string{"Hello World"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestExtractTokensUncompressedStream(t *testing.T) {
	t.Parallel()
	content := "BT (Plain) Tj ET"
	got := ExtractTokens(buildDoc(t, content, false))
	if !reflect.DeepEqual(got, []string{"Plain"}) {
		t.Fatalf("tokens = %v", got)
	}
}

func TestExtractTokensKernedArray(t *testing.T) {
	t.Parallel()
	// Pieces of one TJ array become a single token.
	content := "BT [(Mon) -120 (day)] TJ (CR-12) Tj ET"
	got := ExtractTokens(buildDoc(t, content, true))
	want := []string{"Monday", "CR-12"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestExtractTokensEscapes(t *testing.T) {
	t.Parallel()
	content := `BT (Lab \(CS\)) Tj (Tab\there) Tj (Octal\101) Tj ET`
	got := ExtractTokens(buildDoc(t, content, true))
	want := []string{"Lab (CS)", "Tab here", "OctalA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestExtractTokensHexStrings(t *testing.T) {
	t.Parallel()
	// "Hi" as plain hex, then "Hi" again as UTF-16BE with a BOM.
	content := "BT <4869> Tj <FEFF00480069> Tj ET"
	got := ExtractTokens(buildDoc(t, content, true))
	want := []string{"Hi", "Hi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestExtractTokensInlineDictionary(t *testing.T) {
	t.Parallel()
	// A marked-content dictionary inside the block is skipped whole, even
	// with a hex string nested in it, and only the shown text comes out.
	content := "BT /Span << /MCID 0 /Alt <AB> >> BDC (Text) Tj EMC ET"
	got := ExtractTokens(buildDoc(t, content, true))
	want := []string{"Text"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestExtractTokensMultipleBlocks(t *testing.T) {
	t.Parallel()
	content := "BT (Monday) Tj ET q 1 0 0 1 0 0 cm Q BT (Tuesday) Tj ET"
	got := ExtractTokens(buildDoc(t, content, true))
	want := []string{"Monday", "Tuesday"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestExtractTokensNoStreams(t *testing.T) {
	t.Parallel()
	got := ExtractTokens([]byte("just some bytes, no markers at all"))
	if len(got) != 0 {
		t.Fatalf("tokens = %v, want none", got)
	}
	if got := ExtractTokens(nil); len(got) != 0 {
		t.Fatalf("tokens on nil input = %v, want none", got)
	}
}

func TestExtractTokensCorruptCompression(t *testing.T) {
	t.Parallel()
	// A declared FlateDecode stream with garbage bytes is skipped, and a
	// later good region still extracts.
	var doc bytes.Buffer
	doc.WriteString("<< /Filter /FlateDecode >>\nstream\n\x00\x01garbage\x02\nendstream\n")
	doc.Write(buildDoc(t, "BT (Survivor) Tj ET", true))
	got := ExtractTokens(doc.Bytes())
	if !reflect.DeepEqual(got, []string{"Survivor"}) {
		t.Fatalf("tokens = %v, want [Survivor]", got)
	}
}

func TestExtractTokensNormalization(t *testing.T) {
	t.Parallel()
	content := "BT (  spaced\tout \x01 token  ) Tj () Tj ET"
	got := ExtractTokens(buildDoc(t, content, true))
	want := []string{"spaced out token"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}
