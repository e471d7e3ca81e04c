package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/catalog"
	"github.com/johnrirwin/hamroeshop/internal/config"
	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/moderation"
	"github.com/johnrirwin/hamroeshop/internal/slug"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "HamroEshop catalog tooling",
		Long: `catalogctl exercises the storefront catalog engine offline.

Available subcommands:
  view     - filter, sort and paginate a product file
  pages    - print the compact pagination control
  slug     - derive a URL slug from a title
  groups   - list category groups
  token    - issue a signed access token for local testing
  moderate - run an image through Rekognition moderation`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newViewCmd(),
		newPagesCmd(),
		newSlugCmd(),
		newGroupsCmd(),
		newTokenCmd(),
		newModerateCmd(),
	)
	return root
}

type viewOptions struct {
	file          string
	groupsFile    string
	urlCategories []string
	group         string
	categories    []string
	brands        []string
	ratings       []int
	minPrice      float64
	maxPrice      float64
	inStock       bool
	freeShipping  bool
	search        string
	sort          string
	page          int
	pageSize      int
	viewport      string
	facets        string
}

func newViewCmd() *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Compute a catalog view over a JSON or YAML product file",
		Long: `Loads products from --file, applies the filter flags and prints the
resulting page, facet counts and pagination markers as JSON.

Example:
  catalogctl view --file products.yaml --cat technology-electronics --sort price-low`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "product file (.json, .yaml or .yml)")
	f.StringVar(&opts.groupsFile, "groups", "", "YAML category-group file replacing the built-in table")
	f.StringSliceVar(&opts.urlCategories, "category", nil, "exact category pre-filter (repeatable)")
	f.StringVar(&opts.group, "cat", "", "category group slug pre-filter")
	f.StringSliceVar(&opts.categories, "categories", nil, "sidebar category substrings")
	f.StringSliceVar(&opts.brands, "brands", nil, "brands to keep")
	f.IntSliceVar(&opts.ratings, "ratings", nil, "minimum rating thresholds")
	f.Float64Var(&opts.minPrice, "min-price", -1, "minimum effective price (default: collection minimum)")
	f.Float64Var(&opts.maxPrice, "max-price", -1, "maximum effective price (default: collection maximum)")
	f.BoolVar(&opts.inStock, "in-stock", false, "only products with stock")
	f.BoolVar(&opts.freeShipping, "free-shipping", false, "only products with free shipping")
	f.StringVar(&opts.search, "search", "", "search query")
	f.StringVar(&opts.sort, "sort", string(catalog.SortNewest), "sort key")
	f.IntVar(&opts.page, "page", 1, "page number")
	f.IntVar(&opts.pageSize, "page-size", 0, "page size (overrides --viewport)")
	f.StringVar(&opts.viewport, "viewport", catalog.ViewportDesktop, "viewport class: mobile, tablet or desktop")
	f.StringVar(&opts.facets, "facets", string(catalog.FacetModeUnfiltered), "facet mode: unfiltered or exclude-self")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runView(cmd *cobra.Command, opts *viewOptions) error {
	products, err := loadProducts(opts.file)
	if err != nil {
		return err
	}

	var groups []catalog.CategoryGroup
	if opts.groupsFile != "" {
		if groups, err = catalog.LoadGroups(opts.groupsFile); err != nil {
			return err
		}
	}
	engine := catalog.NewEngine(groups)

	pageSize := opts.pageSize
	if pageSize == 0 {
		pageSize = catalog.PageSizeForViewport(opts.viewport)
	}

	filters := catalog.DefaultFilterState(products, pageSize)
	filters.URLCategories = opts.urlCategories
	filters.CategoryGroup = opts.group
	filters.SelectedCategories = opts.categories
	filters.SelectedBrands = opts.brands
	filters.SelectedRatings = opts.ratings
	if opts.minPrice >= 0 {
		filters.PriceRange.Min = opts.minPrice
	}
	if opts.maxPrice >= 0 {
		filters.PriceRange.Max = opts.maxPrice
	}
	filters.InStockOnly = opts.inStock
	filters.FreeShippingOnly = opts.freeShipping
	filters.SearchQuery = opts.search
	filters.SortKey = catalog.SortKey(opts.sort)
	filters.Page = opts.page
	filters.FacetMode = catalog.ParseFacetMode(opts.facets)

	result, err := engine.ComputeView(products, filters)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
		"view":  result,
		"pages": catalog.GeneratePageNumbers(result.CurrentPage, result.TotalPages),
	})
}

// loadProducts reads a product list, choosing the decoder by extension.
func loadProducts(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	var products []models.Product
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &products)
	default:
		err = json.Unmarshal(data, &products)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse products: %w", err)
	}
	return products, nil
}

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <current> <total>",
		Short: "Print the compact page-number list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid current page %q", args[0])
			}
			total, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid total pages %q", args[1])
			}

			markers := catalog.GeneratePageNumbers(current, total)
			parts := make([]string, len(markers))
			for i, m := range markers {
				parts[i] = m.String()
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
			return err
		},
	}
}

func newSlugCmd() *cobra.Command {
	var taken []string

	cmd := &cobra.Command{
		Use:   "slug <title...>",
		Short: "Derive a unique slug from a title",
		Long: `Normalizes the title into a slug. Slugs passed with --taken are treated
as already used, so the next free numbered candidate is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			used := make(map[string]bool, len(taken))
			for _, s := range taken {
				used[s] = true
			}

			s, err := slug.Allocate(cmd.Context(), strings.Join(args, " "), func(_ context.Context, candidate string) (bool, error) {
				return used[candidate], nil
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&taken, "taken", nil, "slugs that already exist")
	return cmd
}

func newGroupsCmd() *cobra.Command {
	var (
		file         string
		productsFile string
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List category groups with their slugs",
		Long: `Lists the built-in category groups, or those in --file. With --products
the member-product count of each group is included.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var groups []catalog.CategoryGroup
			if file != "" {
				var err error
				if groups, err = catalog.LoadGroups(file); err != nil {
					return err
				}
			}
			engine := catalog.NewEngine(groups)

			var products []models.Product
			if productsFile != "" {
				var err error
				if products, err = loadProducts(productsFile); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), engine.GroupCounts(products))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML category-group file")
	cmd.Flags().StringVar(&productsFile, "products", "", "product file to count group members in")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for local testing",
		Long: `Signs a token with AUTH_JWT_SECRET, AUTH_JWT_ISSUER and AUTH_JWT_AUDIENCE
(or their defaults) so local API calls can act as a customer, seller or admin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.AuthConfig{
				JWTSecret:      envOr("AUTH_JWT_SECRET", "change-me-in-production"),
				JWTIssuer:      envOr("AUTH_JWT_ISSUER", "hamroeshop"),
				JWTAudience:    envOr("AUTH_JWT_AUDIENCE", "hamroeshop-users"),
				AccessTokenTTL: ttl,
			}

			token, err := auth.NewService(cfg).IssueToken(userID, models.Role(role), name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&userID, "user", "", "user id (token subject)")
	f.StringVar(&role, "role", string(models.RoleCustomer), "role: customer, seller or admin")
	f.StringVar(&name, "name", "", "display name")
	f.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newModerateCmd() *cobra.Command {
	var (
		imagePath        string
		region           string
		rejectConfidence float64
	)

	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Run an image through Rekognition moderation",
		RunE: func(cmd *cobra.Command, args []string) error {
			imageBytes, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			detector, err := moderation.NewAWSDetector(cmd.Context(), region)
			if err != nil {
				return fmt.Errorf("failed to initialize rekognition detector: %w", err)
			}
			moderator := moderation.NewService(detector, rejectConfidence)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			decision, err := moderator.ModerateImageBytes(ctx, imageBytes)
			if err != nil {
				return err
			}
			return printDecision(cmd.OutOrStdout(), decision)
		},
	}

	f := cmd.Flags()
	f.StringVar(&imagePath, "image", os.Getenv("IMAGE"), "path to local image file")
	f.StringVar(&region, "region", os.Getenv("AWS_REGION"), "AWS region")
	f.Float64Var(&rejectConfidence, "reject-confidence", 70, "confidence at which a label rejects the image")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func printDecision(w io.Writer, decision *models.ModerationDecision) error {
	fmt.Fprintf(w, "Status: %s\n", decision.Status)
	if decision.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", decision.Reason)
	}
	fmt.Fprintf(w, "MaxConfidence: %.2f\n", decision.MaxConfidence)
	fmt.Fprintln(w, "Labels:")
	for _, label := range decision.Labels {
		if label.ParentName != "" {
			fmt.Fprintf(w, "  - %s (%s): %.2f\n", label.Name, label.ParentName, label.Confidence)
		} else {
			fmt.Fprintf(w, "  - %s: %.2f\n", label.Name, label.Confidence)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
