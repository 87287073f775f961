// Command profilectl fetches a driver profile view from the gRPC service and
// prints it. With -verify it also checks the embed token against the local
// METABASE_SECRET_KEY, so it is an operator tool and must not ship to clients.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/godilite/driver-compliance/internal/config"
	"github.com/godilite/driver-compliance/internal/embedtoken"
	handler "github.com/godilite/driver-compliance/internal/grpc"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func main() {
	_ = godotenv.Load(".env")

	addr := flag.String("addr", envOr("PROFILECTL_ADDR", "localhost:50051"), "gRPC server address")
	driverID := flag.Int64("driver", 0, "driver id to fetch")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	verify := flag.Bool("verify", false, "verify the embed token with METABASE_SECRET_KEY")
	flag.Parse()

	if *driverID <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("connect %s: %v", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	view, err := handler.NewDriverProfileClient(conn).GetDriverProfile(ctx, *driverID)
	if err != nil {
		st := status.Convert(err)
		log.Fatalf("%s: %s", st.Code(), st.Message())
	}

	if err := printView(os.Stdout, view); err != nil {
		log.Fatalf("print view: %v", err)
	}

	if *verify {
		secret := config.LoadFromEnv().MetabaseSecretKey
		if err := verifyEmbed(os.Stdout, view, secret); err != nil {
			log.Fatalf("verify embed: %v", err)
		}
	}
}

func printView(w io.Writer, view *structpb.Struct) error {
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func verifyEmbed(w io.Writer, view *structpb.Struct, secret string) error {
	if secret == "" {
		return errors.New("METABASE_SECRET_KEY is not set")
	}

	embed := view.GetFields()["embed"].GetStructValue()
	embedURL := embed.GetFields()["url"].GetStringValue()
	if embedURL == "" {
		return errors.New("view has no embed url")
	}

	token, err := embedtoken.TokenFromURL(embedURL)
	if err != nil {
		return err
	}
	claims, err := embedtoken.ParseToken(secret, token)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"dashboard":  claims.Resource.Dashboard,
		"params":     claims.Params,
		"expires_at": claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
		"valid_for":  time.Until(claims.ExpiresAt.Time).Round(time.Second).String(),
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
