// Command farmctl is a thin HTTP client CLI for a running farmgatewayd
// instance, in the style of the teacher's cmd/nhb-cli: a switch over
// os.Args, no flag framework.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

var gatewayURL = envOr("FARMCTL_GATEWAY", "http://localhost:8080")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	switch os.Args[1] {
	case "create-farm":
		if len(os.Args) < 5 {
			fmt.Println("Error: create-farm <farm_id> <admin> <stake_mint>")
			return
		}
		createFarm(os.Args[2], os.Args[3], os.Args[4])
	case "create-farmer":
		if len(os.Args) < 4 {
			fmt.Println("Error: create-farmer <farm_id> <authority>")
			return
		}
		createFarmer(os.Args[2], os.Args[3])
	case "take-snapshot":
		if len(os.Args) < 3 {
			fmt.Println("Error: take-snapshot <farm_id>")
			return
		}
		takeSnapshot(os.Args[2])
	case "update-eligible-harvest":
		if len(os.Args) < 3 {
			fmt.Println("Error: update-eligible-harvest <farmer_id>")
			return
		}
		updateEligibleHarvest(os.Args[2])
	case "farmer":
		if len(os.Args) < 3 {
			fmt.Println("Error: farmer <farmer_id>")
			return
		}
		getFarmer(os.Args[2])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
	}
}

func createFarm(farmID, admin, stakeMint string) {
	body := map[string]string{"farm_id": farmID, "admin": admin, "stake_mint": stakeMint}
	var out map[string]string
	if err := post("/farms/", body, &out); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Farm created. Stake vault: %s\n", out["stake_vault"])
}

func createFarmer(farmID, authority string) {
	body := map[string]string{"farm_id": farmID, "authority": authority}
	var out map[string]string
	if err := post("/farmers/", body, &out); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Farmer created: %s\n", out["farmer_id"])
}

func takeSnapshot(farmID string) {
	var out map[string]string
	if err := post("/farms/"+farmID+"/snapshot", nil, &out); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Snapshot taken.")
}

func updateEligibleHarvest(farmerID string) {
	var out map[string]string
	if err := post("/farmers/"+farmerID+"/update-eligible-harvest", nil, &out); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Eligible harvest updated.")
}

func getFarmer(farmerID string) {
	resp, err := http.Get(gatewayURL + "/farmers/" + farmerID)
	if err != nil {
		fmt.Printf("Error: failed to connect to gateway at %s\n", gatewayURL)
		return
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Println("Error: failed to decode response from gateway")
		return
	}
	pretty, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(pretty))
}

func post(path string, body any, out any) error {
	var reader bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reader).Encode(body); err != nil {
			return err
		}
	}
	resp, err := http.Post(gatewayURL+path, "application/json", &reader)
	if err != nil {
		return fmt.Errorf("failed to connect to gateway at %s", gatewayURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, errBody["error"])
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func printUsage() {
	fmt.Println("Usage: farmctl <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  create-farm <farm_id> <admin> <stake_mint>   - Creates a new farm")
	fmt.Println("  create-farmer <farm_id> <authority>          - Creates a new farmer position")
	fmt.Println("  take-snapshot <farm_id>                      - Takes a stake snapshot (permissionless)")
	fmt.Println("  update-eligible-harvest <farmer_id>          - Advances accrual (permissionless)")
	fmt.Println("  farmer <farmer_id>                           - Shows pending accrual for a farmer")
}
