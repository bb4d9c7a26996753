package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/analytics"
	"github.com/abhisek/tutorly/internal/curriculum"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/speech"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/tutor"
)

const analyticsQueueSize = 256

// runtime holds the long-lived dependencies of an interactive command.
type runtime struct {
	store      *store.Store
	llmConfig  llm.Config
	curriculum *curriculum.FileProvider
	topics     *curriculum.TopicCache
	watcher    *curriculum.Watcher
	sink       *analytics.StoreSink
	tutor      *tutor.Controller
}

// newRuntime opens the store, builds dependencies, and creates the tutor.
func newRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	rt := &runtime{store: st}

	curriculumPath, _ := cmd.Flags().GetString("curriculum")
	rt.curriculum, err = curriculum.NewFileProvider(curriculumPath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("load curriculum: %w", err)
	}
	rt.topics = curriculum.NewTopicCache(rt.curriculum, logger)
	if curriculumPath != "" {
		rt.watcher, err = curriculum.NewWatcher(rt.curriculum, rt.topics.Reset, logger)
		if err == nil {
			err = rt.watcher.Start(ctx)
		}
		if err != nil {
			logger.Warn("curriculum reload disabled", zap.String("path", curriculumPath), zap.Error(err))
		}
	}

	eventRepo := st.EventRepo()
	provider, cfg, err := llm.NewProviderFromEnv(ctx, eventRepo, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Using the offline tutor; answers will be generic.")
		cfg = llm.DefaultConfig()
		cfg.Provider = "mock"
		provider, err = llm.NewProvider(ctx, cfg, eventRepo, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
	}
	rt.llmConfig = cfg

	var transcriber speech.Transcriber
	if w, err := speech.NewWhisperTranscriber(speech.ConfigFromEnv()); err == nil {
		transcriber = w
	} else {
		logger.Debug("speech input disabled", zap.Error(err))
	}

	rt.sink = analytics.NewStoreSink(eventRepo, analyticsQueueSize, logger)

	tutorCfg := tutor.ConfigFromEnv()
	if err := tutorCfg.Validate(); err != nil {
		rt.Close()
		return nil, fmt.Errorf("invalid tutor config: %w", err)
	}
	rt.tutor, err = tutor.New(tutorCfg, tutor.Deps{
		Provider:    provider,
		Topics:      rt.topics,
		Retriever:   curriculum.NewRetriever(rt.curriculum),
		Sessions:    st.SessionRepo(),
		Analytics:   rt.sink,
		Transcriber: transcriber,
		Logger:      logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases everything in reverse order of creation.
func (rt *runtime) Close() {
	if rt.tutor != nil {
		rt.tutor.Close()
	}
	if rt.sink != nil {
		rt.sink.Close()
	}
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	if err := rt.store.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
}
