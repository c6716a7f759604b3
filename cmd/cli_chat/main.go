package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"moogla-chat/internal/config"
	"moogla-chat/internal/llm"
	"moogla-chat/internal/render"
	"moogla-chat/internal/repository"
	"moogla-chat/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// En la terminal sólo se muestran warnings para no mezclar logs con el chat.
	logger := zap.NewExample(zap.IncreaseLevel(zapcore.WarnLevel))
	defer logger.Sync()

	repo, closeRepo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("abrir almacenamiento %q: %v", cfg.StoreBackend, err)
	}
	defer closeRepo()

	catalog, err := service.LoadPluginCatalog(cfg.PluginFile)
	if err != nil {
		log.Printf("catalogo de plugins no cargado: %v", err)
	}

	prefsSvc := service.NewPreferencesService(repo, cfg.Model, catalog)
	store := service.NewConversationStore(repo, logger)
	dispatcher := llm.NewHTTPDispatcher(cfg.CompletionURL, nil, logger)
	ctrl := service.NewChatController(store, dispatcher, prefsSvc, logger, cfg.Stream)

	term := render.NewTerminalRenderer(os.Stdout, "moogla")
	if restored := ctrl.Replay(ctx, term); len(restored) > 0 {
		fmt.Printf("(%d mensajes restaurados)\n", len(restored))
	}
	term.SetUserEcho(false)

	if err := chatFlow(ctx, reader, ctrl, prefsSvc, catalog, term); err != nil {
		log.Printf("error en chat: %v", err)
	}
}

func chatFlow(
	ctx context.Context,
	reader *bufio.Reader,
	ctrl *service.ChatController,
	prefsSvc *service.PreferencesService,
	catalog *service.PluginCatalog,
	term *render.TerminalRenderer,
) error {
	fmt.Printf("---- Modo Chat, modelo %s (escribe 'salir' para terminar chat) ----\n", prefsSvc.Model(ctx))
	fmt.Println("Comandos: /clear, /model <nombre>, /plugins a,b, /history")
	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && strings.TrimSpace(text) == "" {
			fmt.Println()
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("leer input: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			fmt.Println("Saliendo del chat...")
			return nil
		}
		if strings.HasPrefix(text, "/") {
			runCommand(ctx, text, ctrl, prefsSvc, catalog, term)
			continue
		}

		if err := ctrl.SendUserMessage(ctx, term, text); err != nil {
			fmt.Printf("error enviando mensaje: %v\n", err)
		}
		if ctx.Err() != nil {
			fmt.Println("Saliendo del chat...")
			return nil
		}
	}
}

func runCommand(
	ctx context.Context,
	line string,
	ctrl *service.ChatController,
	prefsSvc *service.PreferencesService,
	catalog *service.PluginCatalog,
	term *render.TerminalRenderer,
) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/clear":
		if err := ctrl.Clear(ctx, term); err != nil {
			fmt.Printf("error borrando historial: %v\n", err)
		}

	case "/model":
		if arg == "" {
			fmt.Printf("Modelo actual: %s\n", prefsSvc.Model(ctx))
			return
		}
		if err := prefsSvc.SetModel(ctx, arg); err != nil {
			fmt.Printf("error guardando modelo: %v\n", err)
			return
		}
		fmt.Printf("Modelo: %s\n", prefsSvc.Model(ctx))

	case "/plugins":
		if arg == "" {
			printPlugins(ctx, prefsSvc, catalog)
			return
		}
		ids := strings.Split(arg, ",")
		if arg == "-" {
			ids = nil
		}
		if err := prefsSvc.SetPlugins(ctx, ids); err != nil {
			fmt.Printf("error guardando plugins: %v\n", err)
			return
		}
		fmt.Printf("Plugins activos: %s\n", strings.Join(prefsSvc.Plugins(ctx), ", "))

	case "/history":
		history := ctrl.History()
		if len(history) == 0 {
			fmt.Println("(historial vacio)")
			return
		}
		for i, m := range history {
			fmt.Printf("[%d] %s: %s\n", i+1, m.Role, m.Content)
		}

	default:
		fmt.Printf("Comando desconocido: %s\n", cmd)
	}
}

func printPlugins(ctx context.Context, prefsSvc *service.PreferencesService, catalog *service.PluginCatalog) {
	active := make(map[string]bool)
	for _, id := range prefsSvc.Plugins(ctx) {
		active[id] = true
	}
	if catalog.Len() == 0 {
		fmt.Printf("Plugins activos: %s\n", strings.Join(prefsSvc.Plugins(ctx), ", "))
		return
	}
	fmt.Println("Plugins disponibles ('/plugins -' para desactivar todos):")
	for _, p := range catalog.All() {
		mark := " "
		if active[p.ID] {
			mark = "x"
		}
		fmt.Printf("[%s] %s  %s\n", mark, p.ID, p.Description)
	}
}
