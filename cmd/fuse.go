package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmorganca/modalfusion/embedding"
	"github.com/jmorganca/modalfusion/envconfig"
	"github.com/jmorganca/modalfusion/logutil"
	"github.com/jmorganca/modalfusion/ml"
)

func NewFuseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuse BUNDLE",
		Short: "Run a feature bundle through the embedding layer",
		Long:  "Run a feature bundle (.json or .cbor) through the configured embedding layer and print the fused tensors.",
		Args:  cobra.ExactArgs(1),
		RunE:  fuseHandler,
	}

	cmd.Flags().String("weights", "", "CBOR file of pre-trained layer weights")
	cmd.Flags().Bool("train", false, "Apply dropout")
	cmd.Flags().StringP("output", "o", "", "Write the fused tensors to a bundle file")
	cmd.Flags().Int("items", 3, "Elements shown at each end of a dimension")

	return cmd
}

func fuseHandler(cmd *cobra.Command, args []string) error {
	p, err := loadParams(cmd)
	if err != nil {
		return err
	}

	opts := embedding.Options{Seed: envconfig.Seed}
	if path, _ := cmd.Flags().GetString("weights"); path != "" {
		opts.Weights, err = loadWeights(path)
		if err != nil {
			return err
		}
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	features, err := embedding.DecodeFeatures(f, embedding.FormatFromPath(args[0]))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	tok, err := tokenTable(cmd, envconfig.Seed)
	if err != nil {
		return err
	}

	layer, err := embedding.New(p, tok, opts)
	if err != nil {
		return err
	}

	train, _ := cmd.Flags().GetBool("train")
	features, hidden, err := layer.Forward(features, train)
	if err != nil {
		return err
	}

	items, _ := cmd.Flags().GetInt("items")
	dump := ml.DumpOptions{Items: items, Precision: 4}

	w := cmd.OutOrStdout()
	for _, out := range []struct {
		name string
		t    *ml.Tensor
	}{
		{"word_embedding", hidden.WordEmbedding},
		{"input_mask", hidden.InputMask},
		{"segment_ids", hidden.SegmentIDs},
	} {
		fmt.Fprintf(w, "%s %v %v\n%s\n\n", out.name, out.t.DType(), out.t.Shape(), ml.Dump(out.t, dump))
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		o, err := os.Create(path)
		if err != nil {
			return err
		}
		defer o.Close()

		features["word_embedding"] = hidden.WordEmbedding
		features["input_mask"] = hidden.InputMask
		features["segment_ids"] = hidden.SegmentIDs
		if err := embedding.EncodeFeatures(o, features, embedding.FormatFromPath(path)); err != nil {
			return err
		}

		slog.Info("wrote fused bundle", "path", path, logutil.Shape("word_embedding", hidden.WordEmbedding.Shape()))
		return o.Close()
	}

	return nil
}
