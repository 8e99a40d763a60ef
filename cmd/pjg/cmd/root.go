// Package cmd holds the pjg command tree.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kirrus/pjg-go/internal/logging"
	"github.com/kirrus/pjg-go/pjg"
)

// NewRoot builds the root command with all subcommands attached.
func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pjg",
		Short:         "lossless JPEG <-> PJG recompression",
		Long:          "pjg losslessly recompresses JPEG files into the PJG container and restores the original JPEG bit-exactly.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFile, _ := cmd.Flags().GetString("log-file")

			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
				level = slog.LevelInfo
			}

			out := io.Writer(os.Stderr)
			if logFile != "" {
				out = logging.RotatingFile(logFile, 10)
			}
			slog.SetDefault(logging.Logger(out, false, level))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// bare invocation with file arguments behaves like convert
			if len(args) > 0 {
				return runConvert(cmd, args)
			}
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newVersionCmd(gitsha),
		newConvertCmd("compress", "compress JPEG files to PJG"),
		newConvertCmd("decompress", "restore JPEG files from PJG"),
		newConvertCmd("convert", "convert files based on their magic bytes"),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "write logs to a rotating file instead of stderr")
	pf.StringP("output", "o", "", "output file (default: input name with swapped extension, '-' for stdout)")
	pf.Bool("verify", false, "verify the round trip after converting")
	pf.BoolP("force", "p", false, "proceed on warnings (round trip identity no longer guaranteed)")
	pf.BoolP("discard", "d", false, "discard meta information (APPn / COM segments)")
	pf.Bool("loco", false, "use the LOCO-I DC predictor instead of the 1D-DCT one")
	pf.Bool("overwrite", false, "overwrite existing output files")
	pf.StringP("threshold", "t", "", "noise threshold 0..10, optionally per component as N,C")
	pf.StringP("segments", "s", "", "segment count 1..49, optionally per component as N,C")
	return cmd
}

func newVersionCmd(gitsha string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "version of this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (%s)\n", pjg.AppName, pjg.Version(), gitsha)
		},
	}
}

func newConvertCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <file|-> ...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runConvert,
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	mode := cmd.Name()
	errCnt := 0
	warnCnt := 0
	var inTotal, outTotal int64

	for _, arg := range args {
		res, err := convertOne(cmd, mode, arg, opts)
		if err != nil {
			slog.Error("conversion failed", "file", arg, "error", err)
			errCnt++
			continue
		}
		warnCnt += len(res.Warnings)
		inTotal += int64(res.InSize)
		outTotal += int64(res.OutSize)
		slog.Info("converted", "file", arg,
			"in_bytes", res.InSize, "out_bytes", res.OutSize,
			"ratio", fmt.Sprintf("%.2f%%", 100*float64(res.OutSize)/float64(res.InSize)))
	}

	if len(args) > 1 && inTotal > 0 {
		slog.Info("summary", "files", len(args), "errors", errCnt, "warnings", warnCnt,
			"ratio", fmt.Sprintf("%.2f%%", 100*float64(outTotal)/float64(inTotal)))
	}
	if errCnt > 0 {
		return fmt.Errorf("%d of %d files failed", errCnt, len(args))
	}
	return nil
}

func convertOne(cmd *cobra.Command, mode, inPath string, opts *pjg.Options) (*pjg.Result, error) {
	outFlag, _ := cmd.Flags().GetString("output")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	var data []byte
	var err error
	if inPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inPath)
	}
	if err != nil {
		return nil, err
	}

	var out []byte
	var res *pjg.Result
	switch mode {
	case "compress":
		out, res, err = pjg.CompressBytes(data, opts)
	case "decompress":
		out, res, err = pjg.DecompressBytes(data, opts)
	default:
		out, res, err = pjg.ConvertBytes(data, opts)
	}
	if err != nil {
		return nil, err
	}

	if inPath == "-" || outFlag == "-" {
		_, err = os.Stdout.Write(out)
		return res, err
	}

	outPath := outFlag
	if outPath == "" {
		outPath = swapExtension(inPath, res.FileType)
		if !overwrite {
			outPath = uniquePath(outPath)
		}
	}

	// write through a unique temp name, rename on success
	tmp := outPath + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	return res, nil
}

func optionsFromFlags(cmd *cobra.Command) (*pjg.Options, error) {
	opts := &pjg.Options{}
	opts.Verify, _ = cmd.Flags().GetBool("verify")
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.DiscardMeta, _ = cmd.Flags().GetBool("discard")
	if loco, _ := cmd.Flags().GetBool("loco"); loco {
		opts.Predictor = pjg.PredictorLOCOI
	}

	thr, _ := cmd.Flags().GetString("threshold")
	seg, _ := cmd.Flags().GetString("segments")
	if thr != "" || seg != "" {
		s := &pjg.Settings{}
		for i := range s.NoiseThreshold {
			s.NoiseThreshold[i] = 6
			s.SegmentCount[i] = 10
		}
		if err := applySetting(thr, 0, 10, s.NoiseThreshold[:]); err != nil {
			return nil, err
		}
		if err := applySetting(seg, 1, 49, s.SegmentCount[:]); err != nil {
			return nil, err
		}
		opts.Settings = s
	}

	return opts, nil
}

// applySetting parses "N" (all components) or "N,C" (component C only).
func applySetting(spec string, lo, hi int, dst []uint8) error {
	if spec == "" {
		return nil
	}
	parts := strings.SplitN(spec, ",", 2)
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < lo || n > hi {
		return fmt.Errorf("setting %q out of range %d..%d", spec, lo, hi)
	}
	if len(parts) == 2 {
		c, err := strconv.Atoi(parts[1])
		if err != nil || c < 0 || c >= len(dst) {
			return fmt.Errorf("component in %q out of range", spec)
		}
		dst[c] = uint8(n)
		return nil
	}
	for i := range dst {
		dst[i] = uint8(n)
	}
	return nil
}

func swapExtension(path string, ft pjg.FileType) string {
	ext := ".pjg"
	if ft == pjg.FileTypePjg {
		ext = ".jpg"
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ext
}

// uniquePath appends a counter until the name is unused.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		cand := fmt.Sprintf("%s(%d)%s", base, i, ext)
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}
