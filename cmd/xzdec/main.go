// Copyright (c) 2026 The xzpush Authors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of xzdec.
//
// xzdec is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// xzdec is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with xzdec.  If not, see <https://www.gnu.org/licenses/>.

// Command xzdec decompresses XZ Streams.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/schollz/progressbar/v2"
	"github.com/spf13/afero"

	"github.com/xzpush/xzdec/xz"
)

var (
	outputFile = flag.String("o", "", "output file path (default: stdout)")
	dictMax    = flag.Uint("dict", 0, "dictionary size ceiling in bytes (0 = single-call mode, whole file at once)")
	showProg   = flag.Bool("progress", false, "display a progress bar on stderr")
	version    = flag.Bool("version", false, "print version and exit")
)

const appVersion = "0.1.0"

// fs is the filesystem xzdec reads and writes through; swapped for an
// in-memory afero.Fs in tests.
var fs afero.Fs = afero.NewOsFs()

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <file.xz>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Decompresses an XZ stream to stdout, or to -o if given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s archive.tar.xz > archive.tar\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -o out.bin -dict 67108864 -progress firmware.xz\n", os.Args[0])
	}
	flag.Parse()

	if *version {
		fmt.Printf("xzdec version %s\n", appVersion)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: exactly one input file required\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *outputFile, uint32(*dictMax), *showProg); err != nil {
		log.Fatalf("xzdec: %v", err)
	}
}

func run(inputPath, outputPath string, dictMax uint32, progress bool) error {
	in, err := fs.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	var out io.Writer = os.Stdout
	if outputPath != "" {
		f, err := fs.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if progress {
		if info, statErr := in.Stat(); statErr == nil && info.Size() > 0 {
			bar := progressbar.NewOptions64(info.Size(),
				progressbar.OptionSetBytes64(info.Size()),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetPredictTime(true))
			bar.RenderBlank()
			in = &progressCountingFile{File: in, bar: bar}
		}
	}

	pool := newDecoderPool()

	if dictMax == 0 {
		return decodeSingleCall(in, out)
	}
	return decodeStreaming(in, out, pool, dictMax)
}

// decodeSingleCall reads the whole input into memory and decodes it in one
// shot via xz.DecodeAll, mirroring the C decompressor's "whole input, whole
// output" wrapper for small, fully-buffered inputs.
func decodeSingleCall(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	decoded, err := xz.DecodeAll(data, make([]byte, 0, len(data)*3))
	if err != nil {
		return err
	}
	_, err = out.Write(decoded)
	return err
}

// decodeStreaming decodes in through a bounded dictionary, reusing a pooled
// Decoder for dictMax and streaming output as it becomes available instead
// of holding the whole file in memory.
func decodeStreaming(in io.Reader, out io.Writer, pool *decoderPool, dictMax uint32) error {
	dec := pool.get(dictMax)

	const inChunk = 64 * 1024
	inBuf := make([]byte, inChunk)
	outBuf := make([]byte, inChunk)
	buf := xz.Buf{}
	done := false

	for {
		if buf.InPos == len(buf.In) && !done {
			n, readErr := in.Read(inBuf)
			buf.In = inBuf[:n]
			buf.InPos = 0
			if n == 0 {
				if readErr == io.EOF {
					done = true
				} else if readErr != nil {
					return fmt.Errorf("reading input: %w", readErr)
				}
			}
		}

		buf.Out = outBuf
		buf.OutPos = 0

		ret := dec.Run(&buf)
		if buf.OutPos > 0 {
			if _, err := out.Write(outBuf[:buf.OutPos]); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}

		switch ret {
		case xz.StreamEnd:
			return nil
		case xz.OK:
			if done && buf.InPos == len(buf.In) && buf.OutPos == 0 {
				return fmt.Errorf("xzdec: %w", xz.ErrData)
			}
		default:
			return fmt.Errorf("xzdec: %w", ret)
		}
	}
}

// progressCountingFile advances bar by bytes read from the compressed
// input, which is what -progress reports against (matching
// cosnicolaou-pbzip2's compressed-bytes progress metric).
type progressCountingFile struct {
	afero.File
	bar *progressbar.ProgressBar
}

func (p *progressCountingFile) Read(b []byte) (int, error) {
	n, err := p.File.Read(b)
	if n > 0 {
		p.bar.Add(n)
	}
	return n, err
}
