package config

import (
	"fmt"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// applyKDL parses a ".lcid.kdl" document and overlays matching fields onto cfg, leaving
// every unmentioned field at its existing default.
func applyKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse .lcid.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "index_storage_root":
			if s, ok := firstStringArg(n); ok {
				cfg.IndexStorageRoot = s
			}
		case "storage_strategy":
			if s, ok := firstStringArg(n); ok {
				switch StorageStrategy(s) {
				case StrategyCentralized, StrategyInlineWorkspace:
					cfg.StorageStrategy = StorageStrategy(s)
				}
			}
		case "max_memory_bytes":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxMemoryBytes = int64(v)
			}
		case "priority_languages":
			cfg.PriorityLanguages = collectStringArgs(n)
		case "watcher_debounce_ms":
			if v, ok := firstIntArg(n); ok {
				cfg.WatcherDebounceMs = v
			}
		case "worker_pool_size":
			if v, ok := firstIntArg(n); ok {
				cfg.WorkerPoolSize = v
			}
		case "enable_semantic":
			if b, ok := firstBoolArg(n); ok {
				cfg.EnableSemantic = b
			}
		case "embedding_model":
			if s, ok := firstStringArg(n); ok {
				cfg.EmbeddingModel = s
			}
		case "vector_store_endpoint":
			if s, ok := firstStringArg(n); ok {
				cfg.VectorStoreEndpoint = s
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

// collectStringArgs supports both inline ("exclude \"a\" \"b\"") and block
// ("exclude { \"a\"; \"b\" }") KDL forms.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
