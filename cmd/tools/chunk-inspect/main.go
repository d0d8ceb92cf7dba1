package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/annel0/voxel-core/internal/mesh"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

func main() {
	var (
		command   = flag.String("cmd", "gen", "Command: gen, generators")
		generator = flag.String("generator", "superflat", "Generator name")
		seed      = flag.Int64("seed", 0, "World seed")
		cx        = flag.Int64("x", 0, "Chunk X")
		cy        = flag.Int64("y", 0, "Chunk Y")
		cz        = flag.Int64("z", 0, "Chunk Z")
		blocks    = flag.String("blocks", "", "TOML block definitions")
		noMesh    = flag.Bool("no-mesh", false, "Skip mesh statistics")
	)
	flag.Parse()

	registry := block.NewRegistry()
	if *blocks != "" {
		if _, err := registry.LoadFile(*blocks); err != nil {
			log.Fatalf("❌ Failed to load blocks: %v", err)
		}
	}

	codec, err := world.NewSnapshotCodec()
	if err != nil {
		log.Fatalf("❌ Failed to create codec: %v", err)
	}
	defer codec.Close()

	switch *command {
	case "gen":
		pos := vec.ChunkPos{X: *cx, Y: *cy, Z: *cz}
		if err := generateChunk(registry, codec, *generator, *seed, pos, !*noMesh); err != nil {
			log.Fatalf("❌ Gen failed: %v", err)
		}

	case "generators":
		for _, name := range world.NewGeneratorRegistry().List() {
			fmt.Println(name)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		flag.Usage()
		os.Exit(2)
	}
}

func generateChunk(registry *block.Registry, codec *world.SnapshotCodec, name string, seed int64, pos vec.ChunkPos, withMesh bool) error {
	gen := world.NewGeneratorRegistry().Create(name, seed)
	if gen == nil {
		return fmt.Errorf("unknown generator %q", name)
	}

	w := world.NewWorld(world.Config{
		Name:      "inspect",
		Seed:      seed,
		MinChunkY: pos.Y,
		MaxChunkY: pos.Y,
	})
	w.SetGenerator(gen)

	start := time.Now()
	c, err := w.LoadChunk(pos)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %s with %s in %v\n", pos, gen.TypeName(), time.Since(start))

	data, err := w.SnapshotChunk(pos, codec)
	if err != nil {
		return err
	}
	printChunk(registry, c, len(data))

	// Снимок должен восстанавливаться бит в бит
	restored, err := codec.Decode(data)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if restored.Position != pos || !slices.Equal(restored.Voxels(), c.Voxels()) {
		color.Red("❌ Snapshot round trip mismatch")
	} else {
		color.Green("✅ Snapshot round trip OK")
	}

	if withMesh {
		printMesh(registry, c)
	}
	return nil
}

type blockCount struct {
	id    block.BlockID
	count int
}

func printChunk(registry *block.Registry, c *world.Chunk, encodedSize int) {
	counts := make(map[block.BlockID]int)
	fluidCells := 0
	for _, v := range c.Voxels() {
		id := v.TypeID()
		counts[id]++
		if registry.IsFluid(id) {
			fluidCells++
		}
	}

	sorted := make([]blockCount, 0, len(counts))
	for id, n := range counts {
		sorted = append(sorted, blockCount{id: id, count: n})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].id < sorted[j].id
	})

	raw := voxel.ChunkVolume * 4
	fmt.Printf("Solid: %d / %d, fluid cells: %d\n", c.CountSolid(), voxel.ChunkVolume, fluidCells)
	fmt.Printf("Snapshot: %d bytes (%.1f%% of %d)\n", encodedSize, 100*float64(encodedSize)/float64(raw), raw)

	header := color.New(color.Bold)
	header.Println("Blocks:")
	for _, bc := range sorted {
		name := registry.Name(bc.id)
		if name == "" {
			name = "?"
		}
		fmt.Printf("  %-12s %5d  %8d  %5.1f%%\n", name, bc.id, bc.count, 100*float64(bc.count)/float64(voxel.ChunkVolume))
	}
}

func printMesh(registry *block.Registry, c *world.Chunk) {
	gen := mesh.NewGenerator(mesh.DefaultConfig(), registry)

	start := time.Now()
	m := gen.Generate(c.Voxels(), c.Position, nil)
	elapsed := time.Since(start)

	stats := gen.Stats()
	cmd := m.DrawCommand()
	fmt.Printf("Mesh: %d quads, %d triangles, %d vertices, %d KB in %v\n",
		m.QuadCount, m.TriangleCount, len(m.Vertices), m.MemoryUsage()/1024, elapsed)
	fmt.Printf("      faces %d, culled %d, draw indices %d\n",
		stats.FacesGenerated, stats.FacesCulled, cmd.Count)
}
