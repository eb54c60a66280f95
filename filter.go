package pdfgraph

import (
	"bytes"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/ScriptRock/pdfgraph/internal/types"
)

// decodeStream applies the stream's /Filter chain to its raw payload.
// deref resolves indirect filter names and parameters.
func decodeStream(s types.Stream, deref func(types.Object) types.Object) ([]byte, error) {
	filter := deref(s.Hdr["Filter"])
	param := deref(s.Hdr["DecodeParms"])
	data := s.Data

	switch filter := filter.(type) {
	case nil:
		return data, nil
	case types.Name:
		p, _ := param.(types.Dict)
		return applyFilter(data, filter, p, deref)
	case types.Array:
		params, _ := param.(types.Array)
		for i, f := range filter {
			name, ok := deref(f).(types.Name)
			if !ok {
				return nil, fmt.Errorf("invalid filter %v", objfmt(f))
			}
			var p types.Dict
			if i < len(params) {
				p, _ = deref(params[i]).(types.Dict)
			}
			var err error
			if data, err = applyFilter(data, name, p, deref); err != nil {
				return nil, err
			}
		}
		return data, nil
	default:
		return nil, fmt.Errorf("invalid filter %v", objfmt(filter))
	}
}

func applyFilter(data []byte, name types.Name, param types.Dict, deref func(types.Object) types.Object) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("FlateDecode: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil && len(out) == 0 {
			return nil, fmt.Errorf("FlateDecode: %w", err)
		}
		// Truncated deflate data is common; keep what was inflated.
		return unpredict(out, param, deref)
	case "ASCIIHexDecode", "AHx":
		return decodeASCIIHex(data)
	case "ASCII85Decode", "A85":
		return decodeASCII85(data)
	default:
		return nil, fmt.Errorf("unsupported filter %s", name)
	}
}

func decodeASCIIHex(data []byte) ([]byte, error) {
	clean := make([]byte, 0, len(data))
	for _, c := range data {
		if c == '>' {
			break
		}
		if !isSpace(c) {
			clean = append(clean, c)
		}
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	out := make([]byte, hex.DecodedLen(len(clean)))
	if _, err := hex.Decode(out, clean); err != nil {
		return nil, fmt.Errorf("ASCIIHexDecode: %w", err)
	}
	return out, nil
}

func decodeASCII85(data []byte) ([]byte, error) {
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	out, err := io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("ASCII85Decode: %w", err)
	}
	return out, nil
}

// unpredict reverses a PNG (10-15) or TIFF (2) predictor.
func unpredict(data []byte, param types.Dict, deref func(types.Object) types.Object) ([]byte, error) {
	intParam := func(key types.Name, def int64) int64 {
		if x, ok := deref(param[key]).(int64); ok {
			return x
		}
		return def
	}
	pred := intParam("Predictor", 1)
	if pred == 1 || len(data) == 0 {
		return data, nil
	}
	colors := intParam("Colors", 1)
	bpc := intParam("BitsPerComponent", 8)
	columns := intParam("Columns", 1)
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("invalid predictor BitsPerComponent %d", bpc)
	}
	if colors < 1 || colors > 32 || columns < 1 || columns > int64(len(data))*8 {
		return nil, fmt.Errorf("invalid predictor parameters %v", objfmt(param))
	}
	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((colors*bpc*columns + 7) / 8)
	if rowLen <= 0 || rowLen > len(data) {
		return nil, fmt.Errorf("predictor row of %d bytes exceeds %d bytes of data", rowLen, len(data))
	}

	switch {
	case pred == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("unsupported TIFF predictor with %d bits per component", bpc)
		}
		out := bytes.Clone(data)
		for row := 0; row+rowLen <= len(out); row += rowLen {
			for i := bpp; i < rowLen; i++ {
				out[row+i] += out[row+i-bpp]
			}
		}
		return out, nil
	case pred >= 10 && pred <= 15:
		return unpredictPNG(data, rowLen, bpp)
	default:
		return nil, fmt.Errorf("unknown predictor %d", pred)
	}
}

func unpredictPNG(data []byte, rowLen, bpp int) ([]byte, error) {
	var out []byte
	prev := make([]byte, rowLen)
	for len(data) > 0 {
		if len(data) < rowLen+1 {
			// Short final row; decode what is there.
			rowLen = len(data) - 1
			prev = prev[:rowLen]
		}
		typ, row := data[0], bytes.Clone(data[1:rowLen+1])
		data = data[rowLen+1:]
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left, upLeft = row[i-bpp], prev[i-bpp]
			}
			up := prev[i]
			switch typ {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("malformed PNG predictor row type %d", typ)
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
